package model

import "fmt"

// Domain selects one of the two business processes. Each domain owns its own
// set of tables and its own attachment library.
type Domain string

const (
	DomainPurchase Domain = "purchase"
	DomainTravel   Domain = "travel"
)

// Domains lists every supported domain in a stable order.
var Domains = []Domain{DomainPurchase, DomainTravel}

// Request status values. The spelling matches what users see in the forms.
const (
	RequestStatusDraft      = "Draft"
	RequestStatusInProgress = "In Progress"
	RequestStatusApproved   = "Approved"
	RequestStatusRejected   = "Rejected"
)

// Approval status values
const (
	ApprovalStatusPending  = "Pending"
	ApprovalStatusApproved = "Approved"
	ApprovalStatusRejected = "Rejected"
)

// Collection names shared by both domains
const (
	CollectionRequests    = "requests"
	CollectionApprovals   = "approvals"
	CollectionDiscussions = "discussions"
	CollectionAttachments = "attachments"
)

func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainPurchase, DomainTravel:
		return Domain(s), nil
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// Table returns the physical table name of a collection for this domain,
// e.g. purchase_approvals.
func (d Domain) Table(collection string) string {
	return string(d) + "_" + collection
}

// AttachmentLibrary is the storage library holding uploaded files.
func (d Domain) AttachmentLibrary() string {
	return string(d) + "-attachments"
}

// IsTerminalRequestStatus reports whether the approval engine may no longer move the status.
func IsTerminalRequestStatus(status string) bool {
	return status == RequestStatusApproved || status == RequestStatusRejected
}
