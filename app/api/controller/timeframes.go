package controller

import (
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/level-fi/llp-tracker/pkg/db"
	"github.com/level-fi/llp-tracker/pkg/tracker"
)

// pageInfo mirrors the pagination envelope of every list response.
type pageInfo struct {
	TotalItems uint64 `json:"totalItems"`
	Total      int    `json:"total"`
	Current    int    `json:"current"`
	Size       int    `json:"size"`
}

type timeFramesResponse struct {
	Data []tracker.Window `json:"data"`
	Page pageInfo         `json:"page"`
}

// HandleTimeFrames returns one page of a wallet's closed performance windows.
func (c *Controller) HandleTimeFrames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tranche, wallet, err := walletScope(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec, err := parsePageSpec(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := timeFramesResponse{
		Data: []tracker.Window{},
		Page: pageInfo{Current: spec.Page, Size: spec.Size},
	}

	exists, err := c.App.DB.TableExists(ctx, c.App.DB.DatabaseName(), db.WindowsTableName)
	if err != nil {
		c.App.Logger.Error("Unable to check windows table", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if !exists {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	windows, total, err := c.App.DB.QueryWindows(ctx, db.WindowQuery{
		Wallet:  wallet,
		Tranche: tranche,
		From:    spec.From,
		To:      spec.To,
		Size:    spec.Size,
		Page:    spec.Page,
		SortAsc: spec.Sort == SortOrderAsc,
	})
	if err != nil {
		c.App.Logger.Error("Unable to query windows",
			zap.String("tranche", tranche), zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resp.Data = windows
	resp.Page.TotalItems = total
	resp.Page.Total = int(math.Ceil(float64(total) / float64(spec.Size)))
	writeJSON(w, http.StatusOK, resp)
}
