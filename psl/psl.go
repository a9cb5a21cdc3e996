// Package psl checks zone apexes against the public suffix list.
package psl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/miekg/dns"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// ErrPublicSuffix is returned for an apex that is itself a public suffix, such as "co.uk."
var ErrPublicSuffix = errors.New("apex is a public suffix")

// Checker looks up names in a public suffix list.
type Checker struct {
	list    *publicsuffix.List
	options *publicsuffix.FindOptions
}

// New returns a Checker backed by the list compiled into publicsuffix-go.
func New() *Checker {
	return newChecker(publicsuffix.DefaultList)
}

func newChecker(list *publicsuffix.List) *Checker {
	return &Checker{
		list:    list,
		options: &publicsuffix.FindOptions{IgnorePrivate: true, DefaultRule: publicsuffix.DefaultRule},
	}
}

// Load reads a list in the publicsuffix.org format, ignoring private domains.
func Load(r io.Reader) (*Checker, error) {
	list := publicsuffix.NewList()
	options := &publicsuffix.ParserOption{
		PrivateDomains: false,
	}
	if _, err := list.Load(r, options); err != nil {
		return nil, err
	}
	return newChecker(list), nil
}

// LoadFile reads a list from filename.
func LoadFile(filename string) (*Checker, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Registrable returns the registrable domain (eTLD+1) that apex belongs to, as an FQDN.
// An apex deeper than its registrable domain is valid, a delegated sub-zone.
func (c *Checker) Registrable(apex string) (string, error) {
	name, err := publicsuffix.ToASCII(strings.TrimSuffix(strings.ToLower(apex), "."))
	if err != nil {
		return "", fmt.Errorf("%s: %w", apex, err)
	}
	dn, err := publicsuffix.ParseFromListWithOptions(c.list, name, c.options)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPublicSuffix, apex, err)
	}
	return dns.Fqdn(dn.SLD + "." + dn.TLD), nil
}
