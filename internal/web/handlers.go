package web

import (
	"html/template"
	"net/http"
	"time"

	"github.com/akraev/crypto_dca_bot/internal/domain"
	"github.com/akraev/crypto_dca_bot/internal/usecase"
	"go.uber.org/zap"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"ago": func(unix int64) string {
		if unix == 0 {
			return "n/a"
		}
		return time.Since(time.Unix(unix, 0)).Round(time.Second).String()
	},
}).Parse(dashboardHTML))

type dashboardData struct {
	Mode          string
	Symbols       []usecase.SymbolStatus
	RealizedToday float64
	Trades        []*domain.TradeEntry
	GeneratedAt   string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	realized, err := s.pnl.RealizedToday(r.Context())
	if err != nil {
		s.logger.Error("Failed to compute realized P&L", zap.Error(err))
	}
	trades, err := s.ledger.ListTrades(r.Context(), 15)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
	}

	data := dashboardData{
		Mode:          s.bot.Mode(),
		Symbols:       s.bot.Statuses(),
		RealizedToday: realized,
		Trades:        trades,
		GeneratedAt:   time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
	}

	if err := dashboardTmpl.Execute(w, data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", 500)
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="10">
<title>DCA Bot</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; background: #0d1117; color: #c9d1d9; margin: 2rem; }
  h1 { font-size: 1.3rem; }
  h2 { font-size: 1rem; color: #8b949e; }
  .badge { padding: 2px 8px; border-radius: 4px; font-size: 0.8rem; vertical-align: middle; }
  .paper { background: #1f6feb; color: #fff; }
  .live { background: #da3633; color: #fff; }
  table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
  th, td { text-align: right; padding: 6px 10px; border-bottom: 1px solid #21262d; white-space: nowrap; }
  th:first-child, td:first-child { text-align: left; }
  th { color: #8b949e; font-weight: 600; }
  .pos { color: #3fb950; }
  .neg { color: #f85149; }
  .muted { color: #8b949e; }
</style>
</head>
<body>
<h1>DCA Bot <span class="badge {{if eq .Mode "live"}}live{{else}}paper{{end}}">{{.Mode}}</span></h1>
<p>Realized today:
  <span class="{{if ge .RealizedToday 0.0}}pos{{else}}neg{{end}}">{{printf "%+.2f" .RealizedToday}} USDT</span>
  <span class="muted">as of {{.GeneratedAt}}</span>
</p>

<h2>Symbols</h2>
<table>
<tr>
  <th>Symbol</th><th>Price</th><th>RSI</th><th>Phase</th><th>Avg entry</th>
  <th>Position</th><th>Cost (USD)</th><th>Unrealized</th><th>Anchor</th>
  <th>Buys</th><th>Sells</th><th>Updated</th>
</tr>
{{range .Symbols}}
<tr>
  <td>{{.Symbol}}</td>
  <td>{{printf "%.6g" .Price}}</td>
  <td>{{if .HasRSI}}{{printf "%.1f" .RSI}}{{else}}<span class="muted">n/a</span>{{end}}</td>
  <td>{{.Phase}}</td>
  <td>{{if gt .AvgEntry 0.0}}{{printf "%.6g" .AvgEntry}}{{else}}<span class="muted">-</span>{{end}}</td>
  <td>{{printf "%.6g" .TotalBase}}</td>
  <td>{{printf "%.2f" .PositionUSD}}</td>
  <td class="{{if ge .UnrealizedPnL 0.0}}pos{{else}}neg{{end}}">{{printf "%+.2f" .UnrealizedPnL}} ({{printf "%+.2f" .UnrealizedPct}}%)</td>
  <td>{{if gt .AnchorPrice 0.0}}{{printf "%.6g" .AnchorPrice}}{{else}}<span class="muted">-</span>{{end}}</td>
  <td>{{.OpenBuys}}</td>
  <td>{{.OpenSells}}</td>
  <td class="muted">{{ago .UpdatedAt}}</td>
</tr>
{{else}}
<tr><td colspan="12" class="muted">No symbols evaluated yet</td></tr>
{{end}}
</table>

<h2>Recent trades</h2>
<table>
<tr><th>Time (UTC)</th><th>Symbol</th><th>Side</th><th>Qty</th><th>Price</th><th>P&amp;L</th></tr>
{{range .Trades}}
<tr>
  <td>{{.CreatedAt.UTC.Format "2006-01-02 15:04:05"}}</td>
  <td>{{.Symbol}}</td>
  <td>{{.Side}}</td>
  <td>{{printf "%.6g" .Qty}}</td>
  <td>{{printf "%.6g" .Price}}</td>
  <td class="{{if ge .PnLUSD 0.0}}pos{{else}}neg{{end}}">{{printf "%+.2f" .PnLUSD}}</td>
</tr>
{{else}}
<tr><td colspan="6" class="muted">No realized trades yet</td></tr>
{{end}}
</table>
</body>
</html>
`
