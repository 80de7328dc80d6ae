package service

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	ctxUserIDKey       ctxKey = "userID"
	ctxCapabilitiesKey ctxKey = "capabilities"
)

type Capability string

const (
	CapOrdersCreate    Capability = "orders.create"
	CapOrdersRead      Capability = "orders.read"
	CapOrdersUpdate    Capability = "orders.update"
	CapOrdersFulfill   Capability = "orders.fulfill"
	CapInventoryRead   Capability = "inventory.read"
	CapInventoryWrite  Capability = "inventory.write"
	CapInventoryAdjust Capability = "inventory.adjust"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleViewer  Role = "viewer"
)

type Capabilities map[Capability]struct{}

func NewCapabilities(caps ...Capability) Capabilities {
	set := make(Capabilities, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (c Capabilities) Has(want Capability) bool {
	_, ok := c[want]
	return ok
}

// CapabilitiesForRole maps a token role to its capability set. Unknown roles get none.
func CapabilitiesForRole(r Role) Capabilities {
	switch r {
	case RoleAdmin:
		return NewCapabilities(
			CapOrdersCreate, CapOrdersRead, CapOrdersUpdate, CapOrdersFulfill,
			CapInventoryRead, CapInventoryWrite, CapInventoryAdjust,
		)
	case RoleManager:
		return NewCapabilities(
			CapOrdersCreate, CapOrdersRead, CapOrdersUpdate, CapOrdersFulfill,
			CapInventoryRead, CapInventoryAdjust,
		)
	case RoleStaff:
		return NewCapabilities(CapOrdersCreate, CapOrdersRead, CapInventoryRead, CapInventoryAdjust)
	case RoleViewer:
		return NewCapabilities(CapOrdersRead, CapInventoryRead)
	default:
		return NewCapabilities()
	}
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return v, ok
}

func WithCapabilities(ctx context.Context, caps Capabilities) context.Context {
	return context.WithValue(ctx, ctxCapabilitiesKey, caps)
}

func CapabilitiesFromContext(ctx context.Context) (Capabilities, bool) {
	v, ok := ctx.Value(ctxCapabilitiesKey).(Capabilities)
	return v, ok
}

func require(ctx context.Context, want Capability) error {
	caps, ok := CapabilitiesFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !caps.Has(want) {
		return ErrForbidden
	}
	return nil
}
