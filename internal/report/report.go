// Package report renders a portfolio snapshot as markdown. The HTTP API
// serves the raw markdown and the CLI pipes it through glamour.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

var bucketOrder = []struct {
	bucket domain.DueBucket
	label  string
}{
	{domain.BucketOverdue, "Vencidas"},
	{domain.BucketToday, "Vencem hoje"},
	{domain.BucketThisWeek, "Próximos 7 dias"},
	{domain.BucketUpcoming, "Futuras"},
}

var statusLabel = map[domain.Status]string{
	domain.StatusAberto:   "Aberto",
	domain.StatusAtrasado: "Atrasado",
	domain.StatusPago:     "Pago",
}

// RenderSnapshot writes the full report: headline metrics, status
// distribution, reminders, due buckets and client exposure.
func RenderSnapshot(w io.Writer, snap domain.Snapshot) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Carteira de recebíveis em %s\n\n", brDate(snap.Today))

	b.WriteString("## Indicadores\n\n")
	b.WriteString("| Indicador | Valor |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Capital ativo | %s |\n", snap.ActiveCapital)
	fmt.Fprintf(&b, "| Juros a receber | %s |\n", snap.InterestToReceive)
	fmt.Fprintf(&b, "| Total a receber | %s |\n", snap.TotalReceivables)
	fmt.Fprintf(&b, "| Inadimplência | %s |\n", snap.DelinquencyValue)
	fmt.Fprintf(&b, "| Operações ativas | %d |\n", snap.ActiveCount)
	fmt.Fprintf(&b, "| Operações atrasadas | %d |\n\n", snap.OverdueCount)

	if len(snap.Distribution) > 0 {
		b.WriteString("## Distribuição por status\n\n")
		b.WriteString("| Status | Operações | Saldo devedor |\n|---|---:|---:|\n")
		for _, s := range snap.Distribution {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", label(s.Status), s.Count, s.CurrentDebt)
		}
		b.WriteString("\n")
	}

	RenderReminders(&b, snap.Reminders)

	b.WriteString("## Vencimentos\n\n")
	b.WriteString("| Faixa | Operações |\n|---|---:|\n")
	for _, o := range bucketOrder {
		fmt.Fprintf(&b, "| %s | %d |\n", o.label, len(snap.Buckets[o.bucket]))
	}
	b.WriteString("\n")

	if len(snap.Exposure) > 0 {
		b.WriteString("## Exposição por cliente\n\n")
		b.WriteString("| Cliente | Limite | Saldo devedor | Em atraso | Disponível |\n|---|---:|---:|---:|---:|\n")
		for _, e := range snap.Exposure {
			name := e.ClientName
			if e.OverLimit {
				name += " ⚠"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				escape(name), e.LimiteCredito, e.CurrentDebt, e.OverdueDebt, e.AvailableCredit)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderReminders writes only the reminders section.
func RenderReminders(w io.Writer, reminders []domain.Reminder) {
	fmt.Fprint(w, "## Lembretes\n\n")
	if len(reminders) == 0 {
		fmt.Fprint(w, "Nenhum vencimento próximo.\n\n")
		return
	}
	fmt.Fprint(w, "| Título | Vencimento | Prazo | Saldo devedor | Status |\n|---|---|---|---:|---|\n")
	for _, r := range reminders {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			escape(r.TitleNumber), brDate(r.DueDate), daysLeft(r.DaysLeft), r.CurrentDebt, label(r.Status))
	}
	fmt.Fprint(w, "\n")
}

// RenderInstallments writes a preview table of an expanded request.
func RenderInstallments(w io.Writer, ops []domain.Operation) {
	fmt.Fprint(w, "| Parcela | Vencimento | Nominal | Líquido |\n|---|---|---:|---:|\n")
	total, net := domain.ZeroMoney, domain.ZeroMoney
	for _, op := range ops {
		fmt.Fprintf(w, "| %s | %s | %s | %s |\n", escape(op.TitleNumber), brDate(op.DueDate), op.NominalValue, op.NetValue)
		total = total.Add(op.NominalValue)
		net = net.Add(op.NetValue)
	}
	fmt.Fprintf(w, "| **Total** | | **%s** | **%s** |\n", total, net)
}

func daysLeft(n int) string {
	switch {
	case n < 0:
		return fmt.Sprintf("%d dias em atraso", -n)
	case n == 0:
		return "hoje"
	case n == 1:
		return "amanhã"
	}
	return fmt.Sprintf("em %d dias", n)
}

func brDate(d domain.Date) string {
	if d.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day(), int(d.Month()), d.Year())
}

func label(s domain.Status) string {
	if l, ok := statusLabel[s]; ok {
		return l
	}
	return string(s)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
