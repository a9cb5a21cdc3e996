// Package plan turns resolved zone records into the list of domain and record
// create calls needed to replicate them on the hosting provider.
package plan

import (
	"io"
	"strings"

	"github.com/lanrat/zonepush/zone"
	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"
)

// DefaultNameserver is the primary nameserver of the hosting provider.
const DefaultNameserver = "ns1.liquidns.net"

// Policy decides how a record type is transmitted.
type Policy int

const (
	// Send pushes the record data unchanged
	Send Policy = iota
	// Rewrite points the record data at the provider nameserver before pushing
	Rewrite
	// Skip never pushes the record
	Skip
)

func (p Policy) String() string {
	switch p {
	case Send:
		return "send"
	case Rewrite:
		return "rewrite"
	case Skip:
		return "skip"
	}
	return "unknown"
}

// policies lists every type that is not sent as-is.
// SOA is owned by the provider once the zone moves there.
var policies = map[uint16]Policy{
	dns.TypeNS:  Rewrite,
	dns.TypeSOA: Skip,
}

// PolicyFor returns the transmission policy for a record type.
func PolicyFor(rrtype uint16) Policy {
	if p, ok := policies[rrtype]; ok {
		return p
	}
	return Send
}

// Record is a single record create call.
type Record struct {
	Label string
	Type  uint16
	Data  string
	TTL   uint32
}

// TypeString returns the mnemonic of the record type.
func (r Record) TypeString() string {
	return dns.Type(r.Type).String()
}

// Plan holds the calls to make, in order. Domains must all exist before Records are created.
type Plan struct {
	Domains []string
	Records []Record
}

// Build derives the plan for rrs. Labels lose their trailing dot and are
// listed once, in order of first appearance. Records follow their type policy,
// nameserver replaces the target of NS records.
func Build(rrs []dns.RR, nameserver string) *Plan {
	p := &Plan{
		Domains: make([]string, 0),
		Records: make([]Record, 0, len(rrs)),
	}
	seen := make(map[string]bool)
	for _, rr := range rrs {
		hdr := rr.Header()
		label := strings.TrimSuffix(hdr.Name, ".")
		if !seen[label] {
			seen[label] = true
			p.Domains = append(p.Domains, label)
		}

		data := zone.RData(rr)
		switch PolicyFor(hdr.Rrtype) {
		case Skip:
			continue
		case Rewrite:
			data = rewriteTarget(data, nameserver)
		}
		p.Records = append(p.Records, Record{
			Label: label,
			Type:  hdr.Rrtype,
			Data:  data,
			TTL:   hdr.Ttl,
		})
	}
	return p
}

// rewriteTarget replaces the first token of data with nameserver.
func rewriteTarget(data, nameserver string) string {
	parts := strings.Fields(data)
	if len(parts) == 0 {
		return nameserver
	}
	parts[0] = nameserver
	return strings.Join(parts, " ")
}

// Skipped returns how many of rrs Build leaves out of the record calls.
func Skipped(rrs []dns.RR) int {
	var n int
	for _, rr := range rrs {
		if PolicyFor(rr.Header().Rrtype) == Skip {
			n++
		}
	}
	return n
}

type yamlRecord struct {
	Label string `yaml:"label"`
	Type  string `yaml:"type"`
	Data  string `yaml:"data"`
	TTL   uint32 `yaml:"ttl"`
}

type yamlPlan struct {
	Domains []string     `yaml:"domains"`
	Records []yamlRecord `yaml:"records"`
}

// WriteYAML renders the plan to w.
func (p *Plan) WriteYAML(w io.Writer) error {
	out := yamlPlan{
		Domains: p.Domains,
		Records: make([]yamlRecord, 0, len(p.Records)),
	}
	for _, r := range p.Records {
		out.Records = append(out.Records, yamlRecord{
			Label: r.Label,
			Type:  r.TypeString(),
			Data:  r.Data,
			TTL:   r.TTL,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
