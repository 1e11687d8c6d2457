package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohamedkhairy/stock-isolator/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawPrices = `Date,Open,High,Low,Close,Adj Close,Volume
2023-01-03,100,110,95,105,105,1000
2023-01-04,105,106,90,94.5,94.5,1200
2023-01-05,0,0,0,0,0,0
`

func testLayout(t *testing.T) Layout {
	t.Helper()
	return LayoutFromConfig(config.DataConfig{RawDir: t.TempDir()})
}

func TestDownloader_Run(t *testing.T) {
	layout := testLayout(t)
	provider := NewMockProvider()
	provider.SetSymbol("AAPL", rawPrices, "Date,Stock Splits\n", 15.5e9)
	provider.SetSymbol("MSFT", rawPrices, "Date,Stock Splits\n", 7.4e9)
	provider.SetError("FAIL", errors.New("boom"))

	d := NewDownloader(provider, layout, 2)
	stats, err := d.Run(context.Background(), []string{"AAPL", "MSFT", "FAIL"})
	require.NoError(t, err)

	assert.Equal(t, int64(6), stats.Downloaded)
	assert.Equal(t, int64(3), stats.Failed)

	body, err := os.ReadFile(layout.SharesPath("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, "15500000000", string(body))

	body, err = os.ReadFile(layout.PricesPath("MSFT"))
	require.NoError(t, err)
	assert.Equal(t, rawPrices, string(body))

	// A second run finds every file and makes no requests
	before := provider.Calls("AAPL")
	stats, err = d.Run(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Skipped)
	assert.Equal(t, before, provider.Calls("AAPL"))
}

func TestDownloader_NotListed(t *testing.T) {
	layout := testLayout(t)
	provider := NewMockProvider()
	provider.SetError("GONE", ErrNotListed)

	stats, err := NewDownloader(provider, layout, 1).Run(context.Background(), []string{"GONE"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.NotListed)

	_, err = os.Stat(layout.SharesPath("GONE"))
	assert.True(t, os.IsNotExist(err))
}

func TestLayout_Paths(t *testing.T) {
	l := Layout{PricesDir: "p", SplitsDir: "s", SharesDir: "n"}
	assert.Equal(t, filepath.Join("p", "BRK_B.csv"), l.PricesPath("BRK/B"))
	assert.Equal(t, filepath.Join("s", "AAPL.csv"), l.SplitsPath("AAPL"))
	assert.Equal(t, filepath.Join("n", "AAPL.txt"), l.SharesPath("AAPL"))
}
