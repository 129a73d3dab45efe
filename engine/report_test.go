package engine

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func TestSentReport_Golden(t *testing.T) {
	e, _ := newTestEngine(t, seedIDs...)
	seed(t, e)

	g := goldie.New(t)
	g.Assert(t, "sent_report", []byte(e.SentReport()))
}

func TestAllSentInfo_Golden(t *testing.T) {
	e, _ := newTestEngine(t, seedIDs...)
	seed(t, e)
	e.SetDisplayName("Angela Michelle")

	g := goldie.New(t)
	g.Assert(t, "all_sent_info", []byte(e.AllSentInfo()))
}

func TestFindByRecipient_Golden(t *testing.T) {
	e, _ := newTestEngine(t, seedIDs...)
	seed(t, e)

	g := goldie.New(t)
	g.Assert(t, "recipient_listing", []byte(e.FindByRecipient("+27838884567")))
}

func TestSentReport_AfterReloadGolden(t *testing.T) {
	e, dir := newTestEngine(t, seedIDs...)
	f := seed(t, e)
	require.Equal(t, MsgStored, e.Store(f.cake))
	require.Equal(t, MsgStored, e.Store(f.dinner))

	g := goldie.New(t)
	g.Assert(t, "sent_report", []byte(reopen(t, dir).SentReport()))
}
