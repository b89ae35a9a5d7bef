package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/level-fi/llp-tracker/pkg/tracker"
)

const metaFields = `_meta { block { number timestamp } }`

const checkpointFields = `id llpAmount llpAmountChange llpPrice snapshotAtBlock snapshotAtTimestamp tranche wallet index tx`

func perShareDataset(kind tracker.PerShareKind) string {
	if kind == tracker.FeePerShares {
		return "feePerShares"
	}
	return "pnlPerShares"
}

// FetchCheckpoints pages the checkpoint feed forward from the cursor index.
// Batches are fetched as aliased sub-queries of one document so a catch-up
// crawl costs one round trip per batches*pageSize rows.
func (c *Client) FetchCheckpoints(ctx context.Context, tranche string, cursor uint64, batches, pageSize int) ([]CheckpointRecord, Meta, error) {
	var b strings.Builder
	b.WriteString("query ($tranche: String!, $take: Int!) {\n")
	for i := 0; i < batches; i++ {
		fmt.Fprintf(&b,
			"call_%d: walletTrancheHistories(first: $take, orderBy: index, orderDirection: asc, where: {tranche: $tranche, index_gt: %d}) { %s }\n",
			i, cursor+uint64(i*pageSize), checkpointFields)
	}
	b.WriteString(metaFields)
	b.WriteString("\n}")

	var data map[string]json.RawMessage
	err := c.query(ctx, b.String(), map[string]any{"tranche": tranche, "take": pageSize}, &data)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("fetch checkpoints of %s: %w", tranche, err)
	}

	meta, err := decodeMeta(data)
	if err != nil {
		return nil, Meta{}, err
	}

	records := make([]CheckpointRecord, 0, batches*pageSize)
	for i := 0; i < batches; i++ {
		var batch []CheckpointRecord
		if err := decodeAlias(data, fmt.Sprintf("call_%d", i), &batch); err != nil {
			return nil, Meta{}, err
		}
		records = append(records, batch...)
	}
	records = dedupeByIndex(records)
	return records, meta, nil
}

// FetchPerShares pages one per-share feed forward from the cursor index.
func (c *Client) FetchPerShares(ctx context.Context, tranche string, kind tracker.PerShareKind, cursor uint64, batches, pageSize int) ([]PerShareRecord, Meta, error) {
	dataset := perShareDataset(kind)

	var b strings.Builder
	b.WriteString("query ($tranche: String!, $take: Int!) {\n")
	for i := 0; i < batches; i++ {
		fmt.Fprintf(&b,
			"call_%d: %s(first: $take, orderBy: index, orderDirection: asc, where: {tranche: $tranche, index_gt: %d}) { id tranche value snapshotAtTimestamp index }\n",
			i, dataset, cursor+uint64(i*pageSize))
	}
	b.WriteString(metaFields)
	b.WriteString("\n}")

	var data map[string]json.RawMessage
	err := c.query(ctx, b.String(), map[string]any{"tranche": tranche, "take": pageSize}, &data)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("fetch %s of %s: %w", dataset, tranche, err)
	}

	meta, err := decodeMeta(data)
	if err != nil {
		return nil, Meta{}, err
	}

	records := make([]PerShareRecord, 0, batches*pageSize)
	for i := 0; i < batches; i++ {
		var batch []PerShareRecord
		if err := decodeAlias(data, fmt.Sprintf("call_%d", i), &batch); err != nil {
			return nil, Meta{}, err
		}
		records = append(records, batch...)
	}

	seen := make(map[uint64]struct{}, len(records))
	unique := records[:0]
	for _, r := range records {
		if _, ok := seen[r.Index]; ok {
			continue
		}
		seen[r.Index] = struct{}{}
		unique = append(unique, r)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Index < unique[j].Index })
	return unique, meta, nil
}

// FetchPrices returns price samples strictly after the given timestamp,
// ascending.
func (c *Client) FetchPrices(ctx context.Context, tranche string, after int64, take int) ([]PriceRecord, Meta, error) {
	document := fmt.Sprintf(`query ($tranche: String!, $take: Int!, $timestamp: BigInt!) {
		llpPrices(first: $take, orderBy: snapshotAtTimestamp, orderDirection: asc, where: {tranche: $tranche, snapshotAtTimestamp_gt: $timestamp}) {
			id price snapshotAtTimestamp
		}
		%s
	}`, metaFields)

	var data struct {
		LlpPrices []PriceRecord   `json:"llpPrices"`
		Meta      json.RawMessage `json:"_meta"`
	}
	err := c.query(ctx, document, map[string]any{"tranche": tranche, "take": take, "timestamp": fmt.Sprint(after)}, &data)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("fetch prices of %s: %w", tranche, err)
	}

	var meta Meta
	if len(data.Meta) > 0 {
		if err := json.Unmarshal(data.Meta, &meta); err != nil {
			return nil, Meta{}, fmt.Errorf("decode _meta: %w", err)
		}
	}
	return data.LlpPrices, meta, nil
}

// LatestCheckpointStat returns the tip of the checkpoint feed for a tranche.
// found is false while the feed is still empty.
func (c *Client) LatestCheckpointStat(ctx context.Context, tranche string) (CheckpointStat, bool, error) {
	document := `query ($tranche: String!) {
		walletTrancheHistories(first: 1, orderBy: index, orderDirection: desc, where: {tranche: $tranche}) {
			index snapshotAtTimestamp
		}
	}`

	var data struct {
		WalletTrancheHistories []CheckpointStat `json:"walletTrancheHistories"`
	}
	err := c.query(ctx, document, map[string]any{"tranche": tranche}, &data)
	if err != nil {
		return CheckpointStat{}, false, fmt.Errorf("latest checkpoint stat of %s: %w", tranche, err)
	}
	if len(data.WalletTrancheHistories) == 0 {
		return CheckpointStat{}, false, nil
	}
	return data.WalletTrancheHistories[0], true, nil
}

// PerShareIndexesAt returns the highest fee and pnl feed indexes with
// timestamp at or before asOf. A missing feed reports index zero.
func (c *Client) PerShareIndexesAt(ctx context.Context, tranche string, asOf int64) (feeIndex, pnlIndex uint64, err error) {
	document := `query ($tranche: String!, $asOf: BigInt!) {
		fee: feePerShares(first: 1, orderBy: index, orderDirection: desc, where: {tranche: $tranche, snapshotAtTimestamp_lte: $asOf}) { index }
		pnl: pnlPerShares(first: 1, orderBy: index, orderDirection: desc, where: {tranche: $tranche, snapshotAtTimestamp_lte: $asOf}) { index }
	}`

	var data struct {
		Fee []struct {
			Index uint64 `json:"index,string"`
		} `json:"fee"`
		Pnl []struct {
			Index uint64 `json:"index,string"`
		} `json:"pnl"`
	}
	if err := c.query(ctx, document, map[string]any{"tranche": tranche, "asOf": fmt.Sprint(asOf)}, &data); err != nil {
		return 0, 0, fmt.Errorf("per-share indexes of %s: %w", tranche, err)
	}
	if len(data.Fee) > 0 {
		feeIndex = data.Fee[0].Index
	}
	if len(data.Pnl) > 0 {
		pnlIndex = data.Pnl[0].Index
	}
	return feeIndex, pnlIndex, nil
}

func decodeMeta(data map[string]json.RawMessage) (Meta, error) {
	raw, ok := data["_meta"]
	if !ok {
		return Meta{}, nil
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Meta{}, fmt.Errorf("decode _meta: %w", err)
	}
	return meta, nil
}

func decodeAlias(data map[string]json.RawMessage, alias string, out any) error {
	raw, ok := data[alias]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", alias, err)
	}
	return nil
}

// dedupeByIndex drops rows already covered by an earlier aliased batch.
// Adjacent batches overlap whenever the feed grew between cursor computation
// and execution.
func dedupeByIndex(records []CheckpointRecord) []CheckpointRecord {
	seen := make(map[uint64]struct{}, len(records))
	unique := records[:0]
	for _, r := range records {
		if _, ok := seen[r.Index]; ok {
			continue
		}
		seen[r.Index] = struct{}{}
		unique = append(unique, r)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Index < unique[j].Index })
	return unique
}
