// Package mdns advertises the catalog API on the local network with
// DNS-SD over multicast DNS.
//
// Clients browse for the _graylogic-can._tcp service type and read the API
// base path, database name and version from the TXT record.
//
// Usage:
//
//	adv, err := mdns.Advertise(cfg.API.MDNS, cfg.API.Port, mdns.Info{...})
//	if err != nil {
//	    return err
//	}
//	defer adv.Shutdown()
package mdns
