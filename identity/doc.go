// Package identity generates the identifiers used by the binding store:
// opaque object IDs for segments and ports, and MAC addresses for new ports.
//
// Object IDs are random (version 4) UUIDs in their canonical 36 character
// form, which is also the longest port ID the binding tables accept. IDs
// should be treated opaquely.
//
// MAC addresses are drawn from a three octet base prefix followed by three
// random octets:
//
//	mac := NewMAC(DefaultMACBase)
package identity
