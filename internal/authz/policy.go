// Package authz is the single authorization policy: (principal,
// resource, action) in, allow or deny out. Handlers never do role
// checks themselves.
package authz

import "github.com/kjlinux/pourier-back/internal/domain"

type AccountType string

const (
	AccountCustomer     AccountType = "customer"
	AccountPhotographer AccountType = "photographer"
	AccountAdmin        AccountType = "admin"
)

// Principal is the authenticated caller, supplied by the gateway in
// front of this service. A zero UserID means unauthenticated.
type Principal struct {
	UserID      string
	AccountType AccountType
}

func (p Principal) Authenticated() bool { return p.UserID != "" }
func (p Principal) Admin() bool         { return p.AccountType == AccountAdmin }

type Action string

const (
	ActionViewOrder     Action = "order:view"
	ActionPayOrder      Action = "order:pay"
	ActionCancelOrder   Action = "order:cancel"
	ActionFulfillOrder  Action = "order:fulfill"
	ActionRefundOrder   Action = "order:refund"
	ActionReviewProfile Action = "profile:review"
	ActionCreateListing Action = "listing:create"
)

// Resource describes what is being acted on. OwnerID is the order's
// user id; ProfileStatus only matters for listing creation.
type Resource struct {
	OwnerID       string
	ProfileStatus domain.ProfileStatus
}

// Allow returns nil when the action is permitted, ErrUnauthenticated
// when there is no principal, ErrForbidden otherwise.
func Allow(p Principal, res Resource, action Action) error {
	if !p.Authenticated() {
		return domain.ErrUnauthenticated
	}
	switch action {
	case ActionPayOrder, ActionCancelOrder:
		if p.UserID != res.OwnerID {
			return domain.ErrForbidden
		}
	case ActionViewOrder:
		if p.UserID != res.OwnerID && !p.Admin() {
			return domain.ErrForbidden
		}
	case ActionFulfillOrder, ActionRefundOrder, ActionReviewProfile:
		if !p.Admin() {
			return domain.ErrForbidden
		}
	case ActionCreateListing:
		if p.AccountType != AccountPhotographer {
			return domain.ErrForbidden
		}
		if res.ProfileStatus != domain.ProfileStatusApproved {
			return domain.ErrForbidden
		}
	default:
		return domain.ErrForbidden
	}
	return nil
}
