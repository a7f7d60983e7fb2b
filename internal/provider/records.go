package provider

import "fmt"

// Baseline DNS record contents applied to every newly created zone.
// SPF authorizes the mailbox host to send for the domain; DMARC starts in
// monitoring mode so deliverability data accumulates before enforcement.
const (
	baselineSPFContent   = "v=spf1 include:_spf.google.com ~all"
	baselineDMARCContent = "v=DMARC1; p=none;"
)

// BaselineRecords returns the SPF and DMARC records every provisioned
// domain starts with.
func BaselineRecords(domainName string) []Record {
	return []Record{
		{
			Type:    "TXT",
			Name:    domainName,
			Content: baselineSPFContent,
			TTL:     3600,
		},
		{
			Type:    "TXT",
			Name:    fmt.Sprintf("_dmarc.%s", domainName),
			Content: baselineDMARCContent,
			TTL:     3600,
		},
	}
}
