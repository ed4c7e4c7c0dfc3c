package state

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.sia.tech/socbench/internal/feed"
	"go.sia.tech/socbench/internal/soc"
)

func TestNewCreatesSession(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := New(dir)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, fileName))
	require.Equal(t, dir, s.Dir())
	require.Zero(t, s.Counter().Sign())
	require.Empty(t, s.Feeds())

	reopened, err := New(dir)
	require.NoError(t, err)
	require.Equal(t, s.Signer().Owner(), reopened.Signer().Owner())
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	topicA, topicB := feed.NewTopic("a"), feed.NewTopic("b")
	require.NoError(t, s.SetCounter(big.NewInt(300)))
	require.NoError(t, s.SetFeedIndex(topicA, 7))
	require.NoError(t, s.SetFeedIndex(topicB, 1))
	require.NoError(t, s.SetFeedIndex(topicA, 8))

	reopened, err := New(dir)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(300), reopened.Counter())
	index, ok := reopened.FeedIndex(topicA)
	require.True(t, ok)
	require.Equal(t, uint64(8), index)
	_, ok = reopened.FeedIndex(feed.NewTopic("c"))
	require.False(t, ok)
	require.Len(t, reopened.Feeds(), 2)
	require.NoFileExists(t, filepath.Join(dir, fileName+".tmp"))
}

func TestSetSignerResets(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetCounter(big.NewInt(5)))
	require.NoError(t, s.SetFeedIndex(feed.NewTopic("a"), 2))

	signer, err := soc.KeySignerFromHex("0x" + "0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	require.NoError(t, s.SetSigner(signer))

	reopened, err := New(dir)
	require.NoError(t, err)
	require.Equal(t, "7e5f4552091a69125d5dfcb7b8c2659029395bdf", reopened.Signer().Owner().String())
	require.Zero(t, reopened.Counter().Sign())
	require.Empty(t, reopened.Feeds())
}

func TestCorruptSession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte("{"), 0600))
	_, err := New(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(`{"ownerKey":"zz"}`), 0600))
	_, err = New(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(`{"ownerKey":"0000000000000000000000000000000000000000000000000000000000000001","socCounter":-1}`), 0600))
	_, err = New(dir)
	require.Error(t, err)
}

func TestSetCounterRejectsNegative(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.Error(t, s.SetCounter(big.NewInt(-1)))
}
