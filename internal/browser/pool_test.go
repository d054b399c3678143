package browser_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wraithcrawl/seoscan/internal/browser"
)

// requireChrome skips the test when no headless-capable Chrome/Chromium
// binary is available on the host running the suite.
func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no chrome/chromium binary found on PATH")
}

func TestPool_CreatePage_ReturnsUsablePage(t *testing.T) {
	requireChrome(t)

	pool := browser.NewPool("", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	page, err := pool.CreatePage(ctx, "seoscan-test/1.0")
	require.NoError(t, err)
	require.NotNil(t, page)
	assert.Equal(t, "seoscan-test/1.0", page.UserAgent)

	pool.ClosePage(page)
}

func TestPool_CreatePage_TwoPagesAreIsolated(t *testing.T) {
	requireChrome(t)

	pool := browser.NewPool("", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pageA, err := pool.CreatePage(ctx, "agent-a/1.0")
	require.NoError(t, err)
	defer pool.ClosePage(pageA)

	pageB, err := pool.CreatePage(ctx, "agent-b/1.0")
	require.NoError(t, err)
	defer pool.ClosePage(pageB)

	assert.NotEqual(t, pageA.UserAgent, pageB.UserAgent)
}

func TestPool_Shutdown_RejectsNewPagesAfterDrain(t *testing.T) {
	requireChrome(t)

	pool := browser.NewPool("", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	page, err := pool.CreatePage(ctx, "seoscan-test/1.0")
	require.NoError(t, err)

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- pool.Shutdown(ctx)
	}()

	// give Shutdown a moment to flip shuttingDown before we close the page
	time.Sleep(50 * time.Millisecond)
	pool.ClosePage(page)

	require.NoError(t, <-shutdownDone)

	_, err = pool.CreatePage(ctx, "seoscan-test/1.0")
	assert.Error(t, err)
}
