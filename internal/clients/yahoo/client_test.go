package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, 5*time.Second, zerolog.Nop())
}

func TestHistoryParsesChart(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/NVDA")
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))

		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"shortName":"NVIDIA Corporation"},
			"timestamp":[1787443200,1787529600],
			"indicators":{"quote":[{"close":[178.5,181.25]}]}
		}],"error":null}}`))
	})

	series, err := c.History(context.Background(), "NVDA", 30)
	require.NoError(t, err)

	assert.Equal(t, "NVDA", series.Code)
	assert.Equal(t, "NVIDIA Corporation", series.Name)
	assert.Equal(t, "yahoo", series.Source)
	require.Len(t, series.Points, 2)
	assert.Equal(t, "2026-08-23", series.Points[0].Date)
	assert.Equal(t, "2026-08-24", series.Points[1].Date)
	assert.InDelta(t, 181.25, series.Points[1].Close, 1e-9)
}

func TestHistorySkipsNullBars(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{},
			"timestamp":[1787356800,1787443200,1787529600],
			"indicators":{"quote":[{"close":[178.5,null,181.25]}]}
		}],"error":null}}`))
	})

	series, err := c.History(context.Background(), "NVDA", 30)
	require.NoError(t, err)
	assert.Len(t, series.Points, 2)
	// With no name in meta the symbol stands in.
	assert.Equal(t, "NVDA", series.Name)
}

func TestHistoryRateLimited(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.History(context.Background(), "NVDA", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHistoryNoChartData(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found"}}}`))
	})

	_, err := c.History(context.Background(), "BOGUS", 30)
	assert.Error(t, err)
}

func TestHistoryAllBarsNull(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{},
			"timestamp":[1787529600],
			"indicators":{"quote":[{"close":[null]}]}
		}],"error":null}}`))
	})

	_, err := c.History(context.Background(), "NVDA", 30)
	assert.Error(t, err)
}
