// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package monetize handles paid channel subscriptions: tier pricing,
// proration, revenue split, and charging through the payment gateway.
package monetize

import (
	"fmt"
	"time"

	"github.com/snippetia/snippetia/services/api/datatypes"
)

// Tier prices in cents per billing cycle.
const (
	PriceFreeCents      int64 = 0
	PriceSupporterCents int64 = 500
	PriceProCents       int64 = 1500
)

// PlatformFeePercent is the platform's cut of every charge.
const PlatformFeePercent = 10

// CycleDays is the length of one billing cycle.
const CycleDays = 30

// TierPrice returns the per-cycle price of a tier.
func TierPrice(tier string) (int64, error) {
	switch tier {
	case datatypes.TierFree:
		return PriceFreeCents, nil
	case datatypes.TierSupporter:
		return PriceSupporterCents, nil
	case datatypes.TierPro:
		return PriceProCents, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", tier)
	}
}

// Split divides a charge between platform and channel owner. The
// platform fee rounds up; the two parts always sum to the total.
func Split(totalCents int64) (platformCents, ownerCents int64) {
	platformCents = (totalCents*PlatformFeePercent + 99) / 100
	ownerCents = totalCents - platformCents
	return platformCents, ownerCents
}

// Proration computes the immediate charge for an upgrade mid-cycle:
// the price difference scaled by the unexpired fraction of the cycle,
// rounded down. Downgrades prorate to zero; the lower price starts at
// the next renewal.
func Proration(oldPriceCents, newPriceCents int64, now, renewsAt time.Time) int64 {
	delta := newPriceCents - oldPriceCents
	if delta <= 0 {
		return 0
	}
	remaining := renewsAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	remainingDays := int64(remaining.Hours() / 24)
	if remainingDays > CycleDays {
		remainingDays = CycleDays
	}
	return delta * remainingDays / CycleDays
}
