package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/miekg/dns"
)

// DefaultDNSResolver is the local stub resolver queried for domain linkage
// records.
const DefaultDNSResolver = "127.0.0.53:53"

// linkageLabel is prepended to the domain when looking up DID linkage TXT
// records, so did:web:example.org is checked against _did.example.org.
const linkageLabel = "_did."

// ErrLinkageNotFound is returned when a domain publishes no TXT record
// matching the DID under verification.
var ErrLinkageNotFound = errors.New("no DID linkage record for domain")

// LinkageResolver verifies that a did:web identifier is backed by a DNS TXT
// record published under the domain it names.
type LinkageResolver struct {
	addr string
}

// NewLinkageResolver creates a resolver that queries the given DNS server
// address (host:port). An empty address selects the local stub resolver.
func NewLinkageResolver(addr string) *LinkageResolver {
	if addr == "" {
		addr = DefaultDNSResolver
	}
	return &LinkageResolver{addr: addr}
}

// DIDsForDomain returns all DIDs published in _did.<domain> TXT records.
// Records may carry either the bare DID or the "did=<did>" form.
func (r *LinkageResolver) DIDsForDomain(domain string) ([]interfaces.DID, error) {
	m1 := new(dns.Msg)
	m1.Id = dns.Id()
	m1.RecursionDesired = true
	m1.Question = make([]dns.Question, 1)
	m1.Question[0] = dns.Question{Name: dns.Fqdn(linkageLabel + domain), Qtype: dns.TypeTXT, Qclass: dns.ClassINET}

	c := new(dns.Client)
	in, _, err := c.Exchange(m1, r.addr)
	if err != nil {
		return nil, err
	}

	dids := make([]interfaces.DID, 0, len(in.Answer))
	for _, answer := range in.Answer {
		txt, ok := answer.(*dns.TXT)
		if !ok {
			continue
		}
		for _, record := range txt.Txt {
			value := strings.TrimPrefix(strings.TrimSpace(record), "did=")
			did, err := interfaces.NewDID(value)
			if err != nil {
				continue
			}
			dids = append(dids, did)
		}
	}
	return dids, nil
}

// VerifyWebDID checks that the domain named by a did:web identifier
// publishes a linkage record for exactly that DID.
func (r *LinkageResolver) VerifyWebDID(did interfaces.DID) error {
	if did.Method() != "web" {
		return fmt.Errorf("%w: %s is not a did:web identifier", interfaces.ErrInvalidDID, did)
	}

	domain := did.MethodSpecificID()
	published, err := r.DIDsForDomain(domain)
	if err != nil {
		return fmt.Errorf("resolving linkage for %s: %w", domain, err)
	}

	for _, candidate := range published {
		if candidate == did {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLinkageNotFound, did)
}
