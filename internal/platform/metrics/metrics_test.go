package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHelpers_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ListingCreated()
		m.MessageSent()
		m.LiveClientOpened()
		m.LiveClientClosed()
	})
}

func TestHelpers_Count(t *testing.T) {
	m := New()
	m.ListingCreated()
	m.ListingCreated()
	m.MessageSent()
	m.LiveClientOpened()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListingsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveUnreadClients))
}
