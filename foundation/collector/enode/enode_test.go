package enode_test

import (
	"errors"
	"testing"

	"github.com/ethernova/explorer/foundation/collector/enode"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Parse(t *testing.T) {
	type table struct {
		name  string
		input string
		url   enode.URL
		valid bool
	}

	tt := []table{
		{
			name:  "ipv4",
			input: "enode://abc@10.0.0.5:30303",
			url:   enode.URL{ID: "abc", Host: "10.0.0.5", Port: 30303},
			valid: true,
		},
		{
			name:  "ipv4 with query",
			input: "enode://abc@10.0.0.5:30303?discport=30301",
			url:   enode.URL{ID: "abc", Host: "10.0.0.5", Port: 30303, Query: "?discport=30301"},
			valid: true,
		},
		{
			name:  "ipv6 bracketed",
			input: "enode://abc@[2001:db8::1]:30303",
			url:   enode.URL{ID: "abc", Host: "2001:db8::1", Port: 30303},
			valid: true,
		},
		{
			name:  "hostname",
			input: "enode://abc@boot.ethernova.io:443",
			url:   enode.URL{ID: "abc", Host: "boot.ethernova.io", Port: 443},
			valid: true,
		},
		{
			name:  "missing scheme",
			input: "http://abc@10.0.0.5:30303",
			valid: false,
		},
		{
			name:  "missing id separator",
			input: "enode://abc10.0.0.5:30303",
			valid: false,
		},
		{
			name:  "unclosed bracket",
			input: "enode://abc@[2001:db8::1:30303",
			valid: false,
		},
		{
			name:  "missing port",
			input: "enode://abc@hostname",
			valid: false,
		},
		{
			name:  "bad port",
			input: "enode://abc@10.0.0.5:notaport",
			valid: false,
		},
		{
			name:  "empty id",
			input: "enode://@10.0.0.5:30303",
			valid: false,
		},
	}

	t.Log("Given the need to parse advertised enode URLs.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %q.", testID, tst.input)
			{
				url, err := enode.Parse(tst.input)

				if !tst.valid {
					if !errors.Is(err, enode.ErrInvalidURL) {
						t.Fatalf("\t%s\tTest %d:\tShould reject the URL: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the URL.", success, testID)
					continue
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould parse the URL: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould parse the URL.", success, testID)

				if url != tst.url {
					t.Errorf("\t%s\tTest %d:\tGot %+v, expected %+v", failed, testID, url, tst.url)
				} else {
					t.Logf("\t%s\tTest %d:\tShould extract id, host, port and query.", success, testID)
				}
			}
		}
	}
}

func Test_MaskHost(t *testing.T) {
	type table struct {
		name string
		host string
		want string
	}

	tt := []table{
		{name: "ipv4", host: "203.0.113.7", want: "203.0.113.xxx"},
		{name: "ipv6", host: "2001:db8:85a3:8d3:1319:8a2e:370:7348", want: "2001:db8:85a3::"},
		{name: "ipv6 short", host: "fe80::1", want: "fe80:1::"},
		{name: "hostname", host: "boot.ethernova.io", want: "boot.ethernova.io"},
		{name: "empty", host: "", want: ""},
	}

	t.Log("Given the need to redact peer hosts.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s host %q.", testID, tst.name, tst.host)
			{
				got := enode.MaskHost(tst.host)
				if got != tst.want {
					t.Fatalf("\t%s\tTest %d:\tGot %q, expected %q", failed, testID, got, tst.want)
				}
				t.Logf("\t%s\tTest %d:\tShould mask the host.", success, testID)

				// Masking must be idempotent.
				if again := enode.MaskHost(got); again != got {
					t.Errorf("\t%s\tTest %d:\tNot idempotent: %q became %q", failed, testID, got, again)
				} else {
					t.Logf("\t%s\tTest %d:\tShould be idempotent.", success, testID)
				}
			}
		}
	}
}

func Test_MaskURL(t *testing.T) {
	t.Log("Given the need to redact full enode URLs.")
	{
		t.Log("\tTest 0:\tWhen masking an IPv4 URL.")
		{
			got := enode.MaskURL("enode://abc@203.0.113.7:30303")
			want := "enode://abc@203.0.113.xxx:30303"
			if got != want {
				t.Fatalf("\t%s\tTest 0:\tGot %q, expected %q", failed, got, want)
			}
			t.Logf("\t%s\tTest 0:\tShould mask only the host.", success)
		}

		t.Log("\tTest 1:\tWhen masking an IPv6 URL with a query.")
		{
			got := enode.MaskURL("enode://abc@[2001:db8:85a3::7334]:30303?discport=0")
			want := "enode://abc@[2001:db8:85a3::]:30303?discport=0"
			if got != want {
				t.Fatalf("\t%s\tTest 1:\tGot %q, expected %q", failed, got, want)
			}
			t.Logf("\t%s\tTest 1:\tShould preserve scheme, id, port and query.", success)
		}

		t.Log("\tTest 2:\tWhen masking an unparseable URL.")
		{
			const in = "not-an-enode"
			if got := enode.MaskURL(in); got != in {
				t.Fatalf("\t%s\tTest 2:\tGot %q, expected the input unchanged", failed, got)
			}
			t.Logf("\t%s\tTest 2:\tShould return the input unchanged.", success)
		}
	}
}

func Test_MaskAddr(t *testing.T) {
	type table struct {
		addr string
		want string
	}

	tt := []table{
		{addr: "203.0.113.7:30303", want: "203.0.113.xxx:30303"},
		{addr: "[2001:db8:85a3::7334]:30303", want: "[2001:db8:85a3::]:30303"},
		{addr: "203.0.113.7", want: "203.0.113.xxx"},
		{addr: "", want: ""},
	}

	t.Log("Given the need to redact transport addresses.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %q.", testID, tst.addr)
			{
				if got := enode.MaskAddr(tst.addr); got != tst.want {
					t.Fatalf("\t%s\tTest %d:\tGot %q, expected %q", failed, testID, got, tst.want)
				}
				t.Logf("\t%s\tTest %d:\tShould mask the address.", success, testID)
			}
		}
	}
}
