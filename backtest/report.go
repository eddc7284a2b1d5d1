package backtest

import (
	"bytes"
	"os"
	"text/template"
	"time"
)

// Report renders a run result as an org-mode block, handy for keeping a
// research log of runs.
type Report struct {
	RunID    string
	Created  time.Time
	Strategy string
	Symbol   string
	Dataset  string

	StartBalance string

	Result Result
}

var reportFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

// Render returns the org block for the report.
func (r *Report) Render() (string, error) {
	t, err := template.New("report").Funcs(reportFuncs).Parse(reportTemplate)
	if err != nil {
		return "", err
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile renders the report to path.
func (r *Report) WriteFile(path string) error {
	out, err := r.Render()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0644)
}

const reportTemplate = `* RUN: {{.Strategy}} {{.Symbol}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:SYMBOL:      {{.Symbol}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Result.Start.Format "2006-01-02"}}
:END_DATE:    {{.Result.End.Format "2006-01-02"}}
:START_BAL:   {{.StartBalance}}
:END_BAL:     {{.Result.Balance.StringFixed 2}}
:EQUITY:      {{.Result.Equity.StringFixed 2}}
:NET_PL:      {{.Result.Summary.NetProfit.StringFixed 2}}
:TRADES:      {{.Result.Summary.Trades}}
:WINS:        {{.Result.Summary.WinningTrades}}
:LOSSES:      {{.Result.Summary.LosingTrades}}
:WIN_RATE:    {{.Result.Summary.WinRate}}
:PROFIT_FAC:  {{if .Result.Summary.ProfitFactor.IsZero}}(profit-factor?){{else}}{{.Result.Summary.ProfitFactor}}{{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{.Result.Summary.NetProfit.StringFixed 2}}*
- Gross Profit:     {{.Result.Summary.GrossProfit.StringFixed 2}}
- Gross Loss:       {{.Result.Summary.GrossLoss.StringFixed 2}}
- Commission:       {{.Result.Summary.Commission.StringFixed 2}}
- Comm. / Volume:   {{.Result.Summary.CommissionPerVolume.StringFixed 4}}
- Positions:        {{.Result.Summary.TotalPositions}}
- Largest Win:      {{.Result.Summary.LargestWin.StringFixed 2}}
- Largest Loss:     {{.Result.Summary.LargestLoss.StringFixed 2}}
- Max Win Streak:   {{.Result.Summary.MaxConsecutiveWins}}
- Max Loss Streak:  {{.Result.Summary.MaxConsecutiveLosses}}

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Result.Summary.WinningTrades}} |
| Losses  | {{.Result.Summary.LosingTrades}} |
| Total   | {{.Result.Summary.Trades}} |
`
