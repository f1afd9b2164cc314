package emulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpdriver/internal/devtools"
)

// stubClient records the commands a manager sends.
type stubClient struct {
	listeners []devtools.Listener
	commands  []sentCommand
	failOn    string
}

type sentCommand struct {
	method string
	params map[string]any
}

func (s *stubClient) ID() string        { return "stub" }
func (s *stubClient) SessionID() string { return "" }

func (s *stubClient) AddListener(l devtools.Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *stubClient) ConnectIfNecessary() error { return nil }

func (s *stubClient) SendCommand(method string, params map[string]any) error {
	s.commands = append(s.commands, sentCommand{method: method, params: params})
	if method == s.failOn {
		return devtools.NewError(devtools.CodeUnknownError, "send failed")
	}
	return nil
}

func (s *stubClient) SendCommandWithTimeout(method string, params map[string]any, _ devtools.Timeout) error {
	return s.SendCommand(method, params)
}

func (s *stubClient) SendCommandAndGetResult(method string, params map[string]any) (map[string]any, error) {
	return map[string]any{}, s.SendCommand(method, params)
}

func (s *stubClient) SendCommandAndIgnoreResponse(method string, params map[string]any) error {
	return s.SendCommand(method, params)
}

func (s *stubClient) HandleReceivedEvents() error { return nil }

func (s *stubClient) HandleEventsUntil(devtools.ConditionalFunc, devtools.Timeout) error {
	return nil
}

func (s *stubClient) NextMessageID() int64 { return 1 }

func (s *stubClient) methods() []string {
	methods := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		methods = append(methods, c.method)
	}
	return methods
}

var testMetrics = DeviceMetrics{
	Width:             360,
	Height:            640,
	DeviceScaleFactor: 3,
	Mobile:            true,
	FontScaleFactor:   1.2,
}

func TestNewOverrideManagerWithoutMetrics(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	manager := NewOverrideManager(client, nil)

	assert.Empty(t, client.listeners, "a metrics-less manager must not listen")
	assert.False(t, manager.HasOverrideMetrics())
	assert.False(t, manager.IsEmulatingTouch())
	assert.Nil(t, manager.Metrics())
	require.NoError(t, manager.RestoreOverrideMetrics())
	assert.Empty(t, client.commands)
}

func TestNewOverrideManagerRegistersListener(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	metrics := testMetrics
	manager := NewOverrideManager(client, &metrics)

	require.Len(t, client.listeners, 1)
	assert.True(t, manager.HasOverrideMetrics())
	assert.Equal(t, &metrics, manager.Metrics())
}

func TestOverrideManagerAppliesOnConnected(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	metrics := testMetrics
	manager := NewOverrideManager(client, &metrics)

	require.NoError(t, manager.OnConnected(client))
	require.Len(t, client.commands, 1)
	cmd := client.commands[0]
	assert.Equal(t, "Page.setDeviceMetricsOverride", cmd.method)
	assert.Equal(t, map[string]any{
		"width":             360,
		"height":            640,
		"deviceScaleFactor": float64(3),
		"mobile":            true,
		"fitWindow":         false,
		"textAutosizing":    false,
		"fontScaleFactor":   1.2,
	}, cmd.params)
}

func TestOverrideManagerEmulatesTouch(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	metrics := testMetrics
	metrics.Touch = true
	manager := NewOverrideManager(client, &metrics)
	assert.True(t, manager.IsEmulatingTouch())

	require.NoError(t, manager.OnConnected(client))
	require.Equal(t, []string{
		"Page.setDeviceMetricsOverride",
		"Emulation.setTouchEmulationEnabled",
	}, client.methods())
	assert.Equal(t, map[string]any{"enabled": true}, client.commands[1].params)
}

func TestOverrideManagerReappliesOnTopLevelNavigation(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	metrics := testMetrics
	manager := NewOverrideManager(client, &metrics)

	params := map[string]any{"frame": map[string]any{"id": "F1"}}
	require.NoError(t, manager.OnEvent(client, "Page.frameNavigated", params))
	assert.Equal(t, []string{"Page.setDeviceMetricsOverride"}, client.methods())
}

func TestOverrideManagerIgnoresSubframeNavigation(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	metrics := testMetrics
	manager := NewOverrideManager(client, &metrics)

	params := map[string]any{"frame": map[string]any{"id": "F2", "parentId": "F1"}}
	require.NoError(t, manager.OnEvent(client, "Page.frameNavigated", params))
	assert.Empty(t, client.commands)
}

func TestOverrideManagerIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	metrics := testMetrics
	manager := NewOverrideManager(client, &metrics)

	require.NoError(t, manager.OnEvent(client, "Page.loadEventFired", map[string]any{}))
	assert.Empty(t, client.commands)
}

func TestOverrideManagerPropagatesErrors(t *testing.T) {
	t.Parallel()

	client := &stubClient{failOn: "Page.setDeviceMetricsOverride"}
	metrics := testMetrics
	metrics.Touch = true
	manager := NewOverrideManager(client, &metrics)

	err := manager.OnConnected(client)
	assert.Equal(t, devtools.CodeUnknownError, devtools.CodeOf(err))
	assert.Equal(t, []string{"Page.setDeviceMetricsOverride"}, client.methods(),
		"touch emulation must not be attempted after a failure")
}

func TestOverrideManagerRestoreOverrideMetrics(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	metrics := testMetrics
	manager := NewOverrideManager(client, &metrics)

	require.NoError(t, manager.RestoreOverrideMetrics())
	assert.Equal(t, []string{"Page.setDeviceMetricsOverride"}, client.methods())
}
