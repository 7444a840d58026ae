package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/netreconcile/internal/models"
)

type fakeLive struct {
	source models.DiffSource
	data   map[string]any
	errs   map[string]error
	mu     sync.Mutex
	calls  int
}

func (f *fakeLive) Source() models.DiffSource { return f.source }

func (f *fakeLive) Collect(_ context.Context, device string, et models.EntityType) (any, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	key := device + "/" + string(et)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.data[key], nil
}

type fakeSSOT struct {
	data map[string]any
	errs map[string]error
}

func (f *fakeSSOT) Fetch(_ context.Context, device string, et models.EntityType) (any, error) {
	key := device + "/" + string(et)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.data[key], nil
}

func suzieqIface(host, name string, mtu int, desc string) map[string]any {
	return map[string]any{
		"hostname":    host,
		"ifname":      name,
		"adminState":  "up",
		"mtu":         mtu,
		"description": desc,
	}
}

func netboxIface(id int, host, name string, mtu any, desc string) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"device":      map[string]any{"name": host},
		"enabled":     true,
		"mtu":         mtu,
		"description": desc,
	}
}

func TestCompareAll_FieldMismatch(t *testing.T) {
	live := &fakeLive{source: models.SourceSuzieQ, data: map[string]any{
		"R1/interface": []any{suzieqIface("R1", "Gi0/1", 9000, "uplink")},
	}}
	ssot := &fakeSSOT{data: map[string]any{
		"R1/interface": []any{netboxIface(11, "R1", "Gi0/1", 1500, "uplink")},
	}}

	report := NewEngine(live, ssot).CompareAll(context.Background(), []string{"R1"}, []models.EntityType{models.EntityInterface})

	require.NoError(t, report.Validate())
	require.Len(t, report.Diffs, 1)
	d := report.Diffs[0]
	assert.Equal(t, "Gi0/1.mtu", d.Field)
	assert.Equal(t, 9000, d.NetworkValue)
	assert.Equal(t, 1500, d.SSOTValue)
	assert.Equal(t, 11, d.SSOTID)
	assert.Equal(t, "/api/dcim/interfaces/", d.SSOTEndpoint)
	assert.Equal(t, models.SeverityInfo, d.Severity)
	assert.True(t, d.AutoCorrectable)
	assert.Equal(t, models.SourceSuzieQ, d.Source)
	assert.Equal(t, 1, report.TotalEntities)
	assert.Equal(t, 1, report.Mismatched)
	assert.Equal(t, 0, report.Matched)
}

func TestCompareAll_CanonicalValuesMatch(t *testing.T) {
	live := &fakeLive{source: models.SourceSuzieQ, data: map[string]any{
		"R1/interface": []any{suzieqIface("R1", "Gi0/1", 1500, "uplink")},
	}}
	ssot := &fakeSSOT{data: map[string]any{
		"R1/interface": []any{netboxIface(11, "R1", "Gi0/1", "1500", "uplink")},
	}}

	report := NewEngine(live, ssot).CompareAll(context.Background(), []string{"R1"}, []models.EntityType{models.EntityInterface})

	assert.Empty(t, report.Diffs)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.TotalEntities)
}

func TestCompareAll_Existence(t *testing.T) {
	live := &fakeLive{source: models.SourceSuzieQ, data: map[string]any{
		"R1/interface": []any{suzieqIface("R1", "Gi0/2", 1500, "")},
	}}
	ssot := &fakeSSOT{data: map[string]any{
		"R1/interface": []any{netboxIface(12, "R1", "Gi0/3", 1500, "")},
	}}

	report := NewEngine(live, ssot).CompareAll(context.Background(), []string{"R1"}, []models.EntityType{models.EntityInterface})

	require.NoError(t, report.Validate())
	require.Len(t, report.Diffs, 2)
	assert.Equal(t, 1, report.MissingInSSOT)
	assert.Equal(t, 1, report.MissingInNetwork)

	inLive := report.Diffs[0]
	assert.Equal(t, models.FieldExistence, inLive.Field)
	assert.Equal(t, "Gi0/2", inLive.NetworkValue)
	assert.Equal(t, models.MissingValue, inLive.SSOTValue)
	assert.Equal(t, models.SeverityWarning, inLive.Severity)
	assert.False(t, inLive.AutoCorrectable)
	assert.False(t, inLive.HasWriteTarget())

	inSSOT := report.Diffs[1]
	assert.Equal(t, models.MissingValue, inSSOT.NetworkValue)
	assert.Equal(t, "Gi0/3", inSSOT.SSOTValue)
	assert.Equal(t, 12, inSSOT.SSOTID)
	assert.False(t, inSSOT.AutoCorrectable)
}

func TestCompareAll_CollectionFailures(t *testing.T) {
	live := &fakeLive{
		source: models.SourceSuzieQ,
		data: map[string]any{
			"R1/interface": []any{suzieqIface("R1", "Gi0/1", 1500, "")},
		},
		errs: map[string]error{"R2/interface": errors.New("connection refused")},
	}
	ssot := &fakeSSOT{
		data: map[string]any{
			"R1/interface": []any{netboxIface(1, "R1", "Gi0/1", 1500, "")},
		},
		errs: map[string]error{"R1/device": errors.New("netbox 500")},
	}

	report := NewEngine(live, ssot).CompareAll(context.Background(),
		[]string{"R1", "R2"}, []models.EntityType{models.EntityInterface, models.EntityDevice})

	require.NoError(t, report.Validate())
	assert.Equal(t, 1, report.Matched)

	var sides []string
	for _, f := range report.Failures {
		sides = append(sides, fmt.Sprintf("%s/%s/%s", f.Device, f.EntityType, f.Side))
	}
	assert.Contains(t, sides, "R2/interface/network")
	assert.Contains(t, sides, "R1/device/ssot")
}

func TestCompareAll_UnsupportedEntityType(t *testing.T) {
	live := &fakeLive{source: models.SourceEC2}
	ssot := &fakeSSOT{}

	report := NewEngine(live, ssot).CompareAll(context.Background(), []string{"web-1"}, []models.EntityType{models.EntityIPAddress})

	require.Len(t, report.Failures, 1)
	assert.Equal(t, models.SideNetwork, report.Failures[0].Side)
	assert.Contains(t, report.Failures[0].Error, "unsupported")
	assert.Equal(t, 0, live.calls, "unsupported pairs are never collected")
}

func TestCompareAll_DeterministicOrder(t *testing.T) {
	live := &fakeLive{source: models.SourceSuzieQ, data: map[string]any{}}
	ssot := &fakeSSOT{data: map[string]any{}}
	var devices []string
	for i := 0; i < 20; i++ {
		dev := fmt.Sprintf("R%02d", i)
		devices = append(devices, dev)
		live.data[dev+"/interface"] = []any{suzieqIface(dev, "Gi0/1", 9000, "")}
		ssot.data[dev+"/interface"] = []any{netboxIface(i+1, dev, "Gi0/1", 1500, "")}
	}

	report := NewEngine(live, ssot, WithWorkers(8)).CompareAll(context.Background(), devices, []models.EntityType{models.EntityInterface})

	require.Len(t, report.Diffs, 20)
	for i, d := range report.Diffs {
		assert.Equal(t, devices[i], d.Device)
	}
}

func TestCompareAll_DefaultsToAllTypes(t *testing.T) {
	live := &fakeLive{source: models.SourceSuzieQ}
	ssot := &fakeSSOT{}

	report := NewEngine(live, ssot).CompareAll(context.Background(), []string{"R1"}, nil)

	assert.Equal(t, len(models.AllEntityTypes()), live.calls)
	assert.Equal(t, 0, report.TotalEntities)
	assert.Empty(t, report.Failures)
}

func TestCompareAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	live := &fakeLive{source: models.SourceSuzieQ}
	report := NewEngine(live, &fakeSSOT{}).CompareAll(ctx, []string{"R1", "R2"}, nil)

	assert.Equal(t, 0, live.calls)
	assert.NoError(t, report.Validate())
}

func TestDiffEntities_MultipleFields(t *testing.T) {
	e := NewEngine(&fakeLive{source: models.SourceCLI}, &fakeSSOT{})
	report := &models.ReconciliationReport{}

	live := models.EntityMap{"R1": {Fields: map[string]any{"software_version": "17.3", "serial": "A", "model": "C9300"}}}
	ssot := models.EntityMap{"R1": {
		Fields:   map[string]any{"software_version": "17.1", "serial": "B", "vendor": "Cisco"},
		ID:       5,
		Endpoint: "/api/dcim/devices/",
	}}

	e.DiffEntities("R1", models.EntityDevice, models.SourceCLI, live, ssot, report)

	require.Len(t, report.Diffs, 2, "fields reported by only one side are not compared")
	assert.Equal(t, "serial", report.Diffs[0].Field)
	assert.Equal(t, "software_version", report.Diffs[1].Field)
	assert.Equal(t, 2, report.Mismatched)
	assert.Equal(t, 0, report.Matched)
	assert.NoError(t, report.Validate())
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{1500, 1500, true},
		{1500, float64(1500), true},
		{int64(9000), 9000, true},
		{1500, "1500", false},
		{true, true, true},
		{true, "true", false},
		{"Gi0/1", "Gi0/1", true},
		{"a", "A", false},
		{nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v_%v", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.a, tt.b))
		})
	}
}

func TestCompareAll_DeviceNameCaseInsensitive(t *testing.T) {
	live := &fakeLive{source: models.SourceCLI, data: map[string]any{
		"r1/device": []any{map[string]any{"hostname": "R1", "serial": []any{"FTX1"}}},
	}}
	ssot := &fakeSSOT{data: map[string]any{
		"r1/device": []any{map[string]any{"id": 7, "name": "R1", "serial": "FTX1"}},
	}}

	report := NewEngine(live, ssot).CompareAll(context.Background(), []string{"r1"}, []models.EntityType{models.EntityDevice})

	require.NoError(t, report.Validate())
	assert.Equal(t, 1, report.Matched)
	assert.Zero(t, report.MissingInSSOT)
	assert.Zero(t, report.MissingInNetwork)
	assert.Empty(t, report.Diffs)
}
