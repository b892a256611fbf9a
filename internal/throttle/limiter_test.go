package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter_DefaultBurst(t *testing.T) {
	l := NewLimiter(time.Second, -1)
	assert.Equal(t, 1, l.defaultBurst)

	l2 := NewLimiter(time.Second, 3)
	assert.Equal(t, 3, l2.defaultBurst)
}

func TestLimiter_FirstWriteImmediate(t *testing.T) {
	l := NewLimiter(time.Hour, 1)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "https://www.wikidata.org/w/api.php"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiter_SecondWriteWaits(t *testing.T) {
	l := NewLimiter(time.Hour, 1)
	api := "https://www.wikidata.org/w/api.php"
	require.NoError(t, l.Wait(context.Background(), api))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, api), "token should be exhausted within the interval")

	// Other hosts have their own bucket
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "https://test.wikidata.org/w/api.php"))
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiter_ZeroIntervalUnlimited(t *testing.T) {
	l := NewLimiter(0, 1)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "https://example.org"))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestLimiter_BadURL(t *testing.T) {
	assert.Error(t, NewLimiter(time.Second, 1).Wait(context.Background(), "::invalid"))
}

func TestHostOf(t *testing.T) {
	host, err := hostOf("https://www.wikidata.org/w/api.php")
	require.NoError(t, err)
	assert.Equal(t, "www.wikidata.org", host)

	_, err = hostOf("::invalid")
	assert.Error(t, err)
}
