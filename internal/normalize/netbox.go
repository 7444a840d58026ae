package normalize

import (
	"github.com/yourusername/netreconcile/internal/models"
)

// NetBox endpoints used as partial-update coordinates
const (
	InterfacesEndpoint  = "/api/dcim/interfaces/"
	DevicesEndpoint     = "/api/dcim/devices/"
	IPAddressesEndpoint = "/api/ipam/ip-addresses/"
)

func netboxEntity(rec Record, endpoint string) models.Entity {
	e := newEntity()
	if id, ok := toInt(rec["id"]); ok {
		e.ID = id.(int)
		e.Endpoint = endpoint
	}
	return e
}

func netboxInterfaces(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		name := str(rec, "name")
		if name == "" || !belongs(rec, device, "device.name") {
			continue
		}
		e := netboxEntity(rec, InterfacesEndpoint)
		set(&e, models.EntityInterface, "enabled", rec["enabled"])
		set(&e, models.EntityInterface, "mtu", rec["mtu"])
		set(&e, models.EntityInterface, "description", rec["description"])
		mac := rec["mac_address"]
		if mac == nil {
			mac = lookup(rec, "primary_mac_address.mac_address")
		}
		set(&e, models.EntityInterface, "mac_address", mac)
		set(&e, models.EntityInterface, "mode", lookup(rec, "mode.value"))
		set(&e, models.EntityInterface, "lag", lookup(rec, "lag.name"))
		if t := str(rec, "type.value"); t != "" {
			e.Context = map[string]any{"type": t}
		}
		out[name] = e
	}
	return out
}

func netboxDevices(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		name := str(rec, "name")
		if name == "" || !belongs(rec, device, "name") {
			continue
		}
		e := netboxEntity(rec, DevicesEndpoint)
		set(&e, models.EntityDevice, "software_version", lookup(rec, "custom_fields.software_version"))
		set(&e, models.EntityDevice, "serial", rec["serial"])
		set(&e, models.EntityDevice, "model", lookup(rec, "device_type.model"))
		set(&e, models.EntityDevice, "vendor", lookup(rec, "device_type.manufacturer.name"))
		out[device] = e
	}
	return out
}

func netboxAddresses(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		addr := str(rec, "address")
		if addr == "" || !belongs(rec, device, "assigned_object.device.name") {
			continue
		}
		e := netboxEntity(rec, IPAddressesEndpoint)
		set(&e, models.EntityIPAddress, "interface", lookup(rec, "assigned_object.name"))
		set(&e, models.EntityIPAddress, "vrf", lookup(rec, "vrf.name"))
		if ifname, ok := e.Fields["interface"]; ok {
			e.Context = map[string]any{"interface": ifname}
		}
		out[addr] = e
	}
	return out
}
