package normalize

import (
	"fmt"
	"strings"

	"github.com/yourusername/netreconcile/internal/models"
)

// SuzieQ

func suzieqInterfaces(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		name := str(rec, "ifname")
		if name == "" || !belongs(rec, device, "hostname") {
			continue
		}
		e := newEntity()
		set(&e, models.EntityInterface, "enabled", rec["adminState"])
		set(&e, models.EntityInterface, "mtu", rec["mtu"])
		set(&e, models.EntityInterface, "description", rec["description"])
		set(&e, models.EntityInterface, "mac_address", rec["macaddr"])
		set(&e, models.EntityInterface, "state", rec["state"])
		switch str(rec, "portmode") {
		case "access":
			e.Fields["mode"] = "access"
		case "trunk":
			e.Fields["mode"] = "tagged"
		}
		if master := str(rec, "master"); master != "" && str(rec, "type") != "vrf" {
			e.Fields["lag"] = master
		}
		out[name] = e
	}
	return out
}

func suzieqDevices(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		name := str(rec, "hostname")
		if name == "" || !strings.EqualFold(name, device) {
			continue
		}
		e := newEntity()
		set(&e, models.EntityDevice, "software_version", rec["version"])
		set(&e, models.EntityDevice, "serial", rec["serialNumber"])
		set(&e, models.EntityDevice, "model", rec["model"])
		set(&e, models.EntityDevice, "vendor", rec["vendor"])
		out[device] = e
	}
	return out
}

func suzieqAddresses(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		ifname := str(rec, "ifname")
		if ifname == "" || !belongs(rec, device, "hostname") {
			continue
		}
		vrf := str(rec, "vrf")
		for _, list := range []string{"ipAddressList", "ip6AddressList"} {
			addrs, _ := rec[list].([]any)
			for _, a := range addrs {
				addr, ok := a.(string)
				if !ok || addr == "" {
					continue
				}
				e := newEntity()
				e.Fields["interface"] = ifname
				if vrf != "" && vrf != "default" {
					e.Fields["vrf"] = vrf
				}
				e.Context = map[string]any{"interface": ifname}
				out[addr] = e
			}
		}
	}
	return out
}

// CLI output parsed with ntc-templates (show interfaces, show version,
// show ip interface)

func cliInterfaces(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		name := str(rec, "interface")
		if name == "" || !belongs(rec, device, "hostname", "device") {
			continue
		}
		e := newEntity()
		if status := strings.ToLower(str(rec, "link_status")); status != "" {
			e.Fields["enabled"] = !strings.Contains(status, "admin")
		}
		set(&e, models.EntityInterface, "state", rec["protocol_status"])
		set(&e, models.EntityInterface, "mtu", rec["mtu"])
		set(&e, models.EntityInterface, "description", rec["description"])
		mac := rec["mac_address"]
		if mac == nil {
			mac = rec["address"]
		}
		set(&e, models.EntityInterface, "mac_address", mac)
		out[name] = e
	}
	return out
}

func cliDevices(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		if !belongs(rec, device, "hostname") {
			continue
		}
		e := newEntity()
		set(&e, models.EntityDevice, "software_version", rec["version"])
		set(&e, models.EntityDevice, "serial", first(rec, "serial"))
		set(&e, models.EntityDevice, "model", first(rec, "hardware"))
		out[device] = e
	}
	return out
}

func cliAddresses(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		ifname := str(rec, "interface")
		if ifname == "" || !belongs(rec, device, "hostname", "device") {
			continue
		}
		addrs := asList(rec["ip_address"])
		prefixes := asList(rec["prefix_length"])
		for i, a := range addrs {
			if a == "" {
				continue
			}
			key := a
			if !strings.Contains(a, "/") && i < len(prefixes) {
				key = fmt.Sprintf("%s/%s", a, prefixes[i])
			}
			e := newEntity()
			e.Fields["interface"] = ifname
			if vrf := str(rec, "vrf"); vrf != "" {
				e.Fields["vrf"] = vrf
			}
			e.Context = map[string]any{"interface": ifname}
			out[key] = e
		}
	}
	return out
}

func asList(v any) []string {
	switch l := v.(type) {
	case string:
		if l == "" {
			return nil
		}
		return []string{l}
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, strings.TrimSpace(fmt.Sprint(item)))
		}
		return out
	default:
		return nil
	}
}

// OpenConfig (openconfig-interfaces / openconfig-if-ip JSON)

func openconfigRecords(records []Record) []Record {
	if len(records) != 1 {
		return records
	}
	for _, path := range []string{"openconfig-interfaces:interfaces.interface", "interfaces.interface", "interface"} {
		if inner, err := Records(lookup(records[0], path)); err == nil && len(inner) > 0 {
			return inner
		}
	}
	return records
}

func openconfigInterfaces(_ string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range openconfigRecords(records) {
		name := str(rec, "name")
		if name == "" {
			continue
		}
		e := newEntity()
		set(&e, models.EntityInterface, "enabled", lookup(rec, "config.enabled"))
		set(&e, models.EntityInterface, "mtu", lookup(rec, "config.mtu"))
		set(&e, models.EntityInterface, "description", lookup(rec, "config.description"))
		set(&e, models.EntityInterface, "state", lookup(rec, "state.oper-status"))
		out[name] = e
	}
	return out
}

func openconfigAddresses(_ string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range openconfigRecords(records) {
		name := str(rec, "name")
		if name == "" {
			continue
		}
		subs, _ := Records(lookup(rec, "subinterfaces.subinterface"))
		for _, sub := range subs {
			ifname := name
			if idx, ok := toInt(sub["index"]); ok && idx.(int) != 0 {
				ifname = fmt.Sprintf("%s.%d", name, idx)
			}
			for _, family := range []string{"openconfig-if-ip:ipv4", "ipv4", "openconfig-if-ip:ipv6", "ipv6"} {
				addrs, _ := Records(lookup(sub, family+".addresses.address"))
				for _, a := range addrs {
					ip := str(a, "ip")
					plen, ok := toInt(lookup(a, "config.prefix-length"))
					if ip == "" || !ok {
						continue
					}
					e := newEntity()
					e.Fields["interface"] = ifname
					e.Context = map[string]any{"interface": ifname}
					out[fmt.Sprintf("%s/%d", ip, plen)] = e
				}
			}
		}
	}
	return out
}

// EC2 records as built by the aws collector

func ec2Interfaces(_ string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		name := str(rec, "name")
		if name == "" {
			continue
		}
		e := newEntity()
		set(&e, models.EntityInterface, "description", rec["description"])
		set(&e, models.EntityInterface, "mac_address", rec["mac_address"])
		if status := str(rec, "status"); status != "" {
			e.Fields["enabled"] = status == "in-use"
		}
		e.Context = map[string]any{"interface_id": str(rec, "interface_id")}
		out[name] = e
	}
	return out
}

func ec2Devices(device string, records []Record) models.EntityMap {
	out := models.EntityMap{}
	for _, rec := range records {
		if !belongs(rec, device, "name") {
			continue
		}
		e := newEntity()
		set(&e, models.EntityDevice, "serial", rec["instance_id"])
		set(&e, models.EntityDevice, "model", rec["instance_type"])
		out[device] = e
	}
	return out
}
