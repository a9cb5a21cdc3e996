package zone

import (
	"fmt"
	"io"

	"github.com/miekg/dns"
)

// Zone holds the records of one section of a zonefile.
// Every record name has already been resolved against Apex.
type Zone struct {
	// Apex is the fully qualified origin declared by the section header
	Apex string
	// DefaultTTL is applied to records that do not carry their own TTL
	DefaultTTL uint32
	// Records in the order they appear in the file
	Records []dns.RR
}

// Zones is the ordered list of sections found in a zonefile.
type Zones []*Zone

// AddRecord resolves the owner name of r against the zone apex and appends it.
// An owner of "." is the apex itself. Other owners were already joined to the
// apex by the master file grammar, so they are kept as parsed.
func (z *Zone) AddRecord(r dns.RR) {
	hdr := r.Header()
	if hdr.Name == "." {
		hdr.Name = z.Apex
	}
	z.Records = append(z.Records, r)
}

// Records returns the records of all sections, in file order.
func (zs Zones) Records() []dns.RR {
	var n int
	for _, z := range zs {
		n += len(z.Records)
	}
	out := make([]dns.RR, 0, n)
	for _, z := range zs {
		out = append(out, z.Records...)
	}
	return out
}

// Count returns the total number of records in all sections.
func (zs Zones) Count() int {
	var n int
	for _, z := range zs {
		n += len(z.Records)
	}
	return n
}

// Print writes the resolved records of the zone to w, one per line.
func (z *Zone) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "; zone: %s (default ttl %d)\n", z.Apex, z.DefaultTTL); err != nil {
		return err
	}
	for _, rr := range z.Records {
		if _, err := fmt.Fprintln(w, RRString(rr)); err != nil {
			return err
		}
	}
	return nil
}

// Print writes every section to w.
func (zs Zones) Print(w io.Writer) error {
	for _, z := range zs {
		if err := z.Print(w); err != nil {
			return err
		}
	}
	return nil
}

// RRString prints IPv4 IPs in AAAA records in IPv6 notation
// fixes https://github.com/miekg/dns/issues/1107
func RRString(rr dns.RR) string {
	return rr.Header().String() + RData(rr)
}

// RData returns the master file text of the record data, without the header.
func RData(rr dns.RR) string {
	if aaaa, ok := rr.(*dns.AAAA); ok {
		ipStr := aaaa.AAAA.String()
		if aaaa.AAAA.To4() != nil {
			ipStr = fmt.Sprintf("::ffff:%s", ipStr)
		}
		return ipStr
	}
	s := rr.String()
	hdr := rr.Header().String()
	if len(s) >= len(hdr) && s[:len(hdr)] == hdr {
		return s[len(hdr):]
	}
	return s
}
