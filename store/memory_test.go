package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhcgn/quickchat/model"
)

func TestMemStore(t *testing.T) {
	m := NewMemStore()
	var _ Store = m

	draft := model.Record{ID: "1234567890", Recipient: "+27834557896", Payload: "hi", Status: model.StatusStored}
	require.NoError(t, m.Save(draft))
	require.NoError(t, m.Save(draft))
	assert.Equal(t, 1, m.Len())

	sent := draft
	sent.Index, sent.Status = 1, model.StatusSent
	require.NoError(t, m.Save(sent))

	got, err := m.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, []model.Record{sent}, got, "dispatched record replaces its draft")

	require.NoError(t, m.Remove(sent))
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Save(draft))
	require.NoError(t, m.Purge())
	got, err = m.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemStore_KeepsDraftOfOtherMessageWithSameID(t *testing.T) {
	m := NewMemStore()

	draft := model.Record{ID: "1234567890", Recipient: "+27834557896", Payload: "draft", Status: model.StatusStored}
	require.NoError(t, m.Save(draft))

	sent := model.Record{ID: "1234567890", Recipient: "+27834557896", Payload: "other", Index: 1, Status: model.StatusSent}
	require.NoError(t, m.Save(sent))
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Remove(sent))
	got, err := m.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, []model.Record{draft}, got)
}
