/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"github.com/shopspring/decimal"
)

// Order is the read-only view of a platform order
type Order struct {
	Id       string          `json:"id"`
	UserId   string          `json:"user_id"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency,omitempty"`
	Status   string          `json:"status"`
	Items    []LineItem      `json:"items"`
	Refunds  []Refund        `json:"refunds,omitempty"`
}

// LineItem is one product line of an order
type LineItem struct {
	ProductId string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Refund is a refund sub-object attached to an order
type Refund struct {
	Id            string          `json:"id"`
	ParentOrderId string          `json:"parent_order_id"`
	Total         decimal.Decimal `json:"total"`
}

// FindRefund returns the refund with the given id, or nil
func (o *Order) FindRefund(refundId string) *Refund {
	for i := range o.Refunds {
		if o.Refunds[i].Id == refundId {
			return &o.Refunds[i]
		}
	}
	return nil
}

// RefundedTotal sums every refund attached to the order
func (o *Order) RefundedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Refunds {
		total = total.Add(r.Total.Abs())
	}
	return total
}

// RefundedThrough sums the refunds up to and including refundId, in the
// order they were issued
func (o *Order) RefundedThrough(refundId string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Refunds {
		total = total.Add(r.Total.Abs())
		if r.Id == refundId {
			break
		}
	}
	return total
}
