package netbox

import (
	"context"
	"fmt"
	"net/url"

	"github.com/yourusername/netreconcile/internal/models"
	"github.com/yourusername/netreconcile/internal/normalize"
)

// Fetch lists the SSOT objects of one entity type for a device. The result
// is a {"results": [...]} envelope ready for normalize.SSOT.
func (c *Client) Fetch(ctx context.Context, device string, et models.EntityType) (any, error) {
	var (
		path  string
		query = url.Values{}
	)
	switch et {
	case models.EntityInterface:
		path = normalize.InterfacesEndpoint
		query.Set("device", device)
	case models.EntityDevice:
		path = normalize.DevicesEndpoint
		query.Set("name", device)
	case models.EntityIPAddress:
		path = normalize.IPAddressesEndpoint
		query.Set("device", device)
	default:
		return nil, fmt.Errorf("netbox: unsupported entity type %s", et)
	}

	results, err := c.List(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"results": toAnySlice(results)}, nil
}

func toAnySlice(records []map[string]any) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
