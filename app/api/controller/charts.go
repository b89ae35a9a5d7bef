package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/db"
)

type liquidityPoint struct {
	Timestamp int64   `json:"timestamp"`
	Amount    float64 `json:"amount"`
	Price     float64 `json:"price"`
	Value     float64 `json:"value"`
}

type trackingPoint struct {
	Timestamp      int64   `json:"timestamp"`
	TotalChange    float64 `json:"totalChange"`
	RelativeChange float64 `json:"relativeChange"`
	Fee            float64 `json:"fee"`
	Pnl            float64 `json:"pnl"`
	PriceMovement  float64 `json:"priceMovement"`
	ValueChange    float64 `json:"valueChange"`
}

type aprPoint struct {
	Timestamp  int64   `json:"timestamp"`
	NominalApr float64 `json:"nominalApr"`
	NetApr     float64 `json:"netApr"`
}

// HandleChart renders one of the three chart projections over the wallet's
// windows, oldest first.
func (c *Controller) HandleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tranche, wallet, err := walletScope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	chart := mux.Vars(r)["chart"]
	spec, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	windows, _, err := c.App.DB.QueryWindows(ctx, db.WindowQuery{
		Wallet:  wallet,
		Tranche: tranche,
		From:    spec.From,
		To:      spec.To,
		Size:    maxSize,
		Page:    1,
		SortAsc: true,
	})
	if err != nil {
		c.App.Logger.Error("Unable to query windows for chart",
			zap.String("tranche", tranche), zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	switch chart {
	case "liquidity":
		out := make([]liquidityPoint, 0, len(windows))
		for _, win := range windows {
			out = append(out, liquidityPoint{
				Timestamp: win.To,
				Amount:    win.Amount,
				Price:     win.Price,
				Value:     win.Value,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	case "tracking":
		out := make([]trackingPoint, 0, len(windows))
		for _, win := range windows {
			out = append(out, trackingPoint{
				Timestamp:      win.To,
				TotalChange:    win.TotalChange,
				RelativeChange: win.RelativeChange,
				Fee:            win.ValueMovement.Fee,
				Pnl:            win.ValueMovement.Pnl,
				PriceMovement:  win.ValueMovement.Price,
				ValueChange:    win.ValueMovement.ValueChange,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	case "apr":
		out := make([]aprPoint, 0, len(windows))
		for _, win := range windows {
			out = append(out, aprPoint{
				Timestamp:  win.To,
				NominalApr: win.NominalApr,
				NetApr:     win.NetApr,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	default:
		writeError(w, http.StatusNotFound, "unknown chart, must be liquidity, tracking or apr")
	}
}
