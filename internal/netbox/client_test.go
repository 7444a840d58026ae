package netbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/netbox"
	"github.com/yourusername/netreconcile/internal/normalize"
)

func newClient(t *testing.T, srv *httptest.Server) *netbox.Client {
	t.Helper()
	c, err := netbox.NewClient(netbox.Config{URL: srv.URL, Token: "secret", PageSize: 2})
	require.NoError(t, err)
	return c
}

func TestList_FollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/dcim/interfaces/", r.URL.Path)
		assert.Equal(t, "R1", r.URL.Query().Get("device"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("offset") {
		case "":
			next := fmt.Sprintf("%s/api/dcim/interfaces/?device=R1&limit=2&offset=2", srv.URL)
			fmt.Fprintf(w, `{"count": 3, "next": %q, "results": [{"id": 1, "name": "Gi0/1"}, {"id": 2, "name": "Gi0/2"}]}`, next)
		case "2":
			fmt.Fprint(w, `{"count": 3, "next": null, "results": [{"id": 3, "name": "Gi0/3"}]}`)
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	}))
	defer srv.Close()

	records, err := newClient(t, srv).List(context.Background(), "/api/dcim/interfaces/", map[string][]string{"device": {"R1"}})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Gi0/3", records[2]["name"])
}

func TestFetch_NormalizesAsSSOT(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dcim/devices/", r.URL.Path)
		assert.Equal(t, "R1", r.URL.Query().Get("name"))
		fmt.Fprint(w, `{"count": 1, "next": null, "results": [{"id": 7, "name": "R1", "serial": "FTX1"}]}`)
	}))
	defer srv.Close()

	raw, err := newClient(t, srv).Fetch(context.Background(), "R1", models.EntityDevice)
	require.NoError(t, err)

	entities, err := normalize.SSOT(models.EntityDevice, "R1", raw)
	require.NoError(t, err)
	assert.Equal(t, 7, entities["R1"].ID)
	assert.Equal(t, "FTX1", entities["R1"].Fields["serial"])
}

func TestPatchField(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   any
		payload string
	}{
		{"plain attribute", "mtu", 1500, `{"mtu": 1500}`},
		{"bool attribute", "enabled", false, `{"enabled": false}`},
		{"custom field", "software_version", "17.3.1", `{"custom_fields": {"software_version": "17.3.1"}}`},
		{"reference", "lag", "Po1", `{"lag": {"name": "Po1"}}`},
		{"cleared reference", "vrf", nil, `{"vrf": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPatch, r.Method)
				assert.Equal(t, "/api/dcim/interfaces/42/", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				got, _ := json.Marshal(body)
				assert.JSONEq(t, tt.payload, string(got))

				fmt.Fprint(w, `{"id": 42, "name": "Gi0/1"}`)
			}))
			defer srv.Close()

			resp, err := newClient(t, srv).PatchField(context.Background(), "/api/dcim/interfaces/", 42, tt.field, tt.value)
			require.NoError(t, err)
			assert.Equal(t, float64(42), resp["id"])
		})
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"mtu": ["Ensure this value is less than or equal to 65536."]}`)
	}))
	defer srv.Close()

	c := newClient(t, srv)
	_, err := c.Patch(context.Background(), "/api/dcim/interfaces/", 1, map[string]any{"mtu": 1 << 20})
	require.Error(t, err)

	var apiErr *netbox.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, http.MethodPatch, apiErr.Method)
	assert.Contains(t, apiErr.Error(), "less than or equal")

	_, err = c.Get(context.Background(), "/api/dcim/devices/", 9)
	assert.Error(t, err)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := netbox.NewClient(netbox.Config{})
	assert.Error(t, err)

	_, err = netbox.NewClient(netbox.Config{URL: "://bad"})
	assert.Error(t, err)
}

func TestFetch_UnsupportedType(t *testing.T) {
	c, err := netbox.NewClient(netbox.Config{URL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "R1", models.EntityType("vlan"))
	assert.Error(t, err)
}
