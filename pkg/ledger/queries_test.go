package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/level-fi/llp-tracker/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphServer(t *testing.T, data string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Query)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":` + data + `}`))
	}))
}

func TestFetchCheckpointsMergesAliasedBatches(t *testing.T) {
	server := graphServer(t, `{
		"call_0": [
			{"id":"a","wallet":"0xw","tranche":"0xt","llpAmount":"100","llpAmountChange":"100","llpPrice":"1000000000000","snapshotAtBlock":"10","snapshotAtTimestamp":"1000","index":"1","tx":"0x1"},
			{"id":"b","wallet":"0xw","tranche":"0xt","llpAmount":"200","llpAmountChange":"100","llpPrice":"1000000000000","snapshotAtBlock":"11","snapshotAtTimestamp":"1100","index":"2","tx":"0x2"}
		],
		"call_1": [
			{"id":"b","wallet":"0xw","tranche":"0xt","llpAmount":"200","llpAmountChange":"100","llpPrice":"1000000000000","snapshotAtBlock":"11","snapshotAtTimestamp":"1100","index":"2","tx":"0x2"},
			{"id":"c","wallet":"0xw","tranche":"0xt","llpAmount":"0","llpAmountChange":"-200","llpPrice":"1000000000000","snapshotAtBlock":"12","snapshotAtTimestamp":"1200","index":"3","tx":"0x3"}
		],
		"_meta": {"block":{"number":12,"timestamp":1200}}
	}`)
	defer server.Close()

	client := NewWithOpts(Opts{Endpoints: []string{server.URL}})
	records, meta, err := client.FetchCheckpoints(context.Background(), "0xt", 0, 2, 2)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(1), records[0].Index)
	assert.Equal(t, uint64(3), records[2].Index)
	assert.Equal(t, "-200", records[2].LpAmountChange)
	assert.Equal(t, uint64(12), meta.Block.Number)
	assert.Equal(t, int64(1200), meta.Block.Timestamp)
}

func TestFetchPerShares(t *testing.T) {
	server := graphServer(t, `{
		"call_0": [
			{"id":"f1","tranche":"0xt","value":"20000000000","snapshotAtTimestamp":"1000","index":"1"}
		],
		"_meta": {"block":{"number":9,"timestamp":999}}
	}`)
	defer server.Close()

	client := NewWithOpts(Opts{Endpoints: []string{server.URL}})
	records, meta, err := client.FetchPerShares(context.Background(), "0xt", tracker.FeePerShares, 0, 1, 100)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "20000000000", records[0].Value)
	assert.Equal(t, uint64(9), meta.Block.Number)
}

func TestLatestCheckpointStatEmptyFeed(t *testing.T) {
	server := graphServer(t, `{"walletTrancheHistories": []}`)
	defer server.Close()

	client := NewWithOpts(Opts{Endpoints: []string{server.URL}})
	_, found, err := client.LatestCheckpointStat(context.Background(), "0xt")

	require.NoError(t, err)
	assert.False(t, found)
}

func TestQuerySurfacesGraphErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"errors":[{"message":"indexing error"}]}`))
	}))
	defer server.Close()

	client := NewWithOpts(Opts{Endpoints: []string{server.URL}})
	_, _, err := client.LatestCheckpointStat(context.Background(), "0xt")

	require.ErrorContains(t, err, "indexing error")
}
