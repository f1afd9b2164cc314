// Package emulation re-applies device emulation overrides across
// navigations and reconnects.
package emulation

import (
	"cdpdriver/internal/devtools"
)

// DeviceMetrics describes the screen emulation applied to a page. The
// record is immutable once handed to an OverrideManager.
type DeviceMetrics struct {
	Width             int
	Height            int
	DeviceScaleFactor float64
	Mobile            bool
	FitWindow         bool
	TextAutosizing    bool
	FontScaleFactor   float64
	Touch             bool
}

// OverrideManager keeps device-metric overrides in force. The browser drops
// them on navigation and the client drops its connection on renderer
// restarts, so the manager listens for both edges and re-applies.
type OverrideManager struct {
	devtools.BaseListener
	client  devtools.DevToolsClient
	metrics *DeviceMetrics
}

// NewOverrideManager creates the manager and, when metrics are present,
// registers it with the client. A nil metrics manager stays inert.
func NewOverrideManager(client devtools.DevToolsClient, metrics *DeviceMetrics) *OverrideManager {
	m := &OverrideManager{client: client, metrics: metrics}
	if metrics != nil {
		client.AddListener(m)
	}
	return m
}

// OnConnected applies the overrides on every (re)connect.
func (m *OverrideManager) OnConnected(devtools.DevToolsClient) error {
	return m.applyOverrideIfNeeded()
}

// OnEvent re-applies the overrides when the top-level frame navigates.
func (m *OverrideManager) OnEvent(_ devtools.DevToolsClient, method string, params map[string]any) error {
	if method == "Page.frameNavigated" && !hasParentFrame(params) {
		return m.applyOverrideIfNeeded()
	}
	return nil
}

// HasOverrideMetrics reports whether the manager holds overrides.
func (m *OverrideManager) HasOverrideMetrics() bool {
	return m.metrics != nil
}

// IsEmulatingTouch reports whether touch emulation is part of the overrides.
func (m *OverrideManager) IsEmulatingTouch() bool {
	return m.metrics != nil && m.metrics.Touch
}

// Metrics returns the overrides, or nil. Borrowed read-only.
func (m *OverrideManager) Metrics() *DeviceMetrics {
	return m.metrics
}

// RestoreOverrideMetrics re-applies the overrides on demand.
func (m *OverrideManager) RestoreOverrideMetrics() error {
	return m.applyOverrideIfNeeded()
}

func (m *OverrideManager) applyOverrideIfNeeded() error {
	if m.metrics == nil {
		return nil
	}
	params := map[string]any{
		"width":             m.metrics.Width,
		"height":            m.metrics.Height,
		"deviceScaleFactor": m.metrics.DeviceScaleFactor,
		"mobile":            m.metrics.Mobile,
		"fitWindow":         m.metrics.FitWindow,
		"textAutosizing":    m.metrics.TextAutosizing,
		"fontScaleFactor":   m.metrics.FontScaleFactor,
	}
	if err := m.client.SendCommand("Page.setDeviceMetricsOverride", params); err != nil {
		return err
	}
	if m.metrics.Touch {
		return m.client.SendCommand("Emulation.setTouchEmulationEnabled", map[string]any{
			"enabled": true,
		})
	}
	return nil
}

func hasParentFrame(params map[string]any) bool {
	frame, ok := params["frame"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = frame["parentId"]
	return ok
}
