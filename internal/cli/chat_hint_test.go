package cli

import (
	"testing"

	"github.com/jrsteele09/go-social-client/internal/utils"
	"github.com/jrsteele09/go-social-client/presence"
	"github.com/stretchr/testify/require"
)

func TestPartnerHintPrintsOnlyOnChange(t *testing.T) {
	h := &partnerHint{}
	type step struct {
		record presence.Record
		line   string
	}
	steps := []step{
		{record: presence.Record{LastSeenMinutesAgo: utils.Ptr(0)}, line: "last seen just now"},
		{record: presence.Record{LastSeenMinutesAgo: utils.Ptr(0)}},
		{record: presence.Record{LastSeenMinutesAgo: utils.Ptr(1)}, line: "last seen 1 minute ago"},
		{record: presence.Record{LastSeenMinutesAgo: utils.Ptr(1)}},
		{record: presence.Record{IsOnline: true}},
		{record: presence.Unknown},
		{record: presence.Record{LastSeenMinutesAgo: utils.Ptr(1)}, line: "last seen 1 minute ago"},
	}
	for i, s := range steps {
		line, ok := h.next(s.record)
		require.Equal(t, s.line != "", ok, "step %d", i)
		require.Equal(t, s.line, line, "step %d", i)
	}
}
