package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/config"
	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/backend"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/observability"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/supabase"
	"github.com/boddenberg/carteira-recebiveis-go/internal/report"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

var commands = []subcommands.Command{
	&resumoCmd{},
	&lembretesCmd{},
	&parcelasCmd{},
	&schemaCmd{},
}

// ============================================================
// resumo
// ============================================================

type resumoCmd struct {
	raw  bool
	user string
}

func (*resumoCmd) Name() string     { return "resumo" }
func (*resumoCmd) Synopsis() string { return "mostra o painel da carteira" }
func (*resumoCmd) Usage() string {
	return `carteira resumo [-raw] [-user <id>]

  Carrega a carteira do store configurado e mostra indicadores, distribuição
  por status, lembretes, vencimentos e exposição por cliente.
`
}

func (c *resumoCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "imprime o markdown sem formatação")
	f.StringVar(&c.user, "user", "", "aplica os lembretes ocultados por este usuário")
}

func (c *resumoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	portfolio, closeFn, err := loadPortfolio(ctx, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	snap, err := portfolio.Snapshot(ctx, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		return subcommands.ExitFailure
	}
	var b strings.Builder
	if err := report.RenderSnapshot(&b, snap); err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(b.String(), c.raw)
	return subcommands.ExitSuccess
}

// ============================================================
// lembretes
// ============================================================

type lembretesCmd struct {
	days int
	user string
	raw  bool
}

func (*lembretesCmd) Name() string     { return "lembretes" }
func (*lembretesCmd) Synopsis() string { return "lista as operações que vencem em breve" }
func (*lembretesCmd) Usage() string {
	return `carteira lembretes [-d <dias>] [-user <id>] [-raw]

  Lista operações em aberto ou atrasadas que vencem dentro da janela.
`
}

func (c *lembretesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "d", 0, "janela em dias (padrão: REMINDER_WINDOW_DAYS)")
	f.StringVar(&c.user, "user", "", "aplica os lembretes ocultados por este usuário")
	f.BoolVar(&c.raw, "raw", false, "imprime o markdown sem formatação")
}

func (c *lembretesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.days < 0 {
		fmt.Fprintln(os.Stderr, "Erro: -d não pode ser negativo")
		return subcommands.ExitUsageError
	}
	portfolio, closeFn, err := loadPortfolio(ctx, c.days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeFn()

	snap, err := portfolio.Snapshot(ctx, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		return subcommands.ExitFailure
	}
	var b strings.Builder
	report.RenderReminders(&b, snap.Reminders)
	printMarkdown(b.String(), c.raw)
	return subcommands.ExitSuccess
}

// ============================================================
// parcelas
// ============================================================

type parcelasCmd struct {
	title   string
	nominal string
	rate    string
	due     string
	n       int
	raw     bool
}

func (*parcelasCmd) Name() string     { return "parcelas" }
func (*parcelasCmd) Synopsis() string { return "simula um parcelamento sem gravar nada" }
func (*parcelasCmd) Usage() string {
	return `carteira parcelas -valor <total> -venc <AAAA-MM-DD> -n <parcelas> [-taxa <% a.m.>] [-titulo <base>]

  Divide o valor em parcelas mensais e mostra nominal e líquido de cada uma.
  A última parcela absorve a diferença de arredondamento.
`
}

func (c *parcelasCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "titulo", "", "título base das parcelas")
	f.StringVar(&c.nominal, "valor", "", "valor nominal total")
	f.StringVar(&c.rate, "taxa", "0", "taxa mensal em %")
	f.StringVar(&c.due, "venc", "", "vencimento da primeira parcela")
	f.IntVar(&c.n, "n", 2, "número de parcelas")
	f.BoolVar(&c.raw, "raw", false, "imprime o markdown sem formatação")
}

func (c *parcelasCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	nominal, err := domain.ParseMoney(c.nominal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: -valor: %v\n", err)
		return subcommands.ExitUsageError
	}
	rate, err := domain.ParseRate(c.rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: -taxa: %v\n", err)
		return subcommands.ExitUsageError
	}
	due, err := domain.ParseDate(c.due)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: -venc: %v\n", err)
		return subcommands.ExitUsageError
	}

	ops, err := service.ExpandInstallments(domain.OperationRequest{
		Type:         domain.OperationParcelamento,
		TitleNumber:  c.title,
		NominalValue: nominal,
		IssueDate:    domain.Today(time.Local),
		DueDate:      due,
		Installments: c.n,
	}, rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		return subcommands.ExitFailure
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Parcelamento de %s a %s a.m.\n\n", nominal, rate)
	report.RenderInstallments(&b, ops)
	printMarkdown(b.String(), c.raw)
	return subcommands.ExitSuccess
}

// ============================================================
// schema
// ============================================================

type schemaCmd struct{}

func (*schemaCmd) Name() string     { return "schema" }
func (*schemaCmd) Synopsis() string { return "imprime o DDL esperado pelo backend supabase" }
func (*schemaCmd) Usage() string {
	return `carteira schema

  Imprime as tabelas, índices e cascatas que o backend PostgREST espera.
`
}
func (*schemaCmd) SetFlags(*flag.FlagSet) {}

func (*schemaCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Print(supabase.Schema)
	return subcommands.ExitSuccess
}

// ============================================================
// Helpers
// ============================================================

// loadPortfolio opens the configured store and loads it once. window
// overrides the reminder window when positive.
func loadPortfolio(ctx context.Context, window int) (*service.PortfolioService, func() error, error) {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()
	logger := observability.NewLogger("warn")

	store, closeFn, err := backend.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if window <= 0 {
		window = cfg.ReminderWindowDays
	}
	portfolio := service.NewPortfolioService(store, nil, observability.NewMetrics(), logger, service.PortfolioOptions{
		Location:       cfg.Location(),
		ReminderWindow: window,
	})
	if err := portfolio.Refresh(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return portfolio, closeFn, nil
}

func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
