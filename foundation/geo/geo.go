// Package geo resolves peer hosts against local MaxMind databases. Lookups
// never fail: a missing database, an unparseable host or a reader error all
// degrade to a zero valued Info.
package geo

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Info carries the geolocation metadata for one host.
type Info struct {
	CountryCode string
	CountryName string
	ASNNumber   uint
	ASNOrg      string
}

// Resolver holds the optional country and ASN database readers.
type Resolver struct {
	country *geoip2.Reader
	asn     *geoip2.Reader
}

// New opens the configured databases. Either path may be empty; a database
// that fails to open is simply not consulted.
func New(countryPath string, asnPath string) *Resolver {
	var r Resolver

	if countryPath != "" {
		if reader, err := geoip2.Open(countryPath); err == nil {
			r.country = reader
		}
	}
	if asnPath != "" {
		if reader, err := geoip2.Open(asnPath); err == nil {
			r.asn = reader
		}
	}

	return &r
}

// Close releases the database readers.
func (r *Resolver) Close() {
	if r.country != nil {
		r.country.Close()
	}
	if r.asn != nil {
		r.asn.Close()
	}
}

// HasCountry reports whether a country database is loaded.
func (r *Resolver) HasCountry() bool { return r.country != nil }

// HasASN reports whether an ASN database is loaded.
func (r *Resolver) HasASN() bool { return r.asn != nil }

// Lookup resolves the host literal. Hostnames are not resolved over DNS;
// only IP literals produce data.
func (r *Resolver) Lookup(host string) Info {
	var info Info

	ip := net.ParseIP(host)
	if ip == nil {
		return info
	}

	if r.country != nil {
		if record, err := r.country.Country(ip); err == nil && record != nil {
			info.CountryCode = record.Country.IsoCode
			info.CountryName = record.Country.Names["en"]
		}
	}

	if r.asn != nil {
		if record, err := r.asn.ASN(ip); err == nil && record != nil {
			info.ASNNumber = record.AutonomousSystemNumber
			info.ASNOrg = record.AutonomousSystemOrganization
		}
	}

	return info
}
