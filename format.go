/*
Copyright 2024 DineHub Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dinehub/notifier/model"
)

// amountPlaces is the fixed currency precision (fils).
const amountPlaces = 3

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(amountPlaces)
}

// FormatNewOrder renders the message body for a new-order alert. Pure
// function: no I/O, no side effects.
func FormatNewOrder(orderNo, table string, items []model.OrderItem, subtotal decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 New order %s\n", orderNo)
	if table != "" {
		fmt.Fprintf(&b, "Table: %s\n", table)
	}
	writeItemLines(&b, items)
	fmt.Fprintf(&b, "\nTotal: %s", formatAmount(subtotal))
	return b.String()
}

// FormatCancelledOrder renders the message body for a cancellation alert.
// The reason line is included only when a reason was recorded.
func FormatCancelledOrder(orderNo, table string, items []model.OrderItem, subtotal decimal.Decimal, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Order cancelled %s\n", orderNo)
	if table != "" {
		fmt.Fprintf(&b, "Table: %s\n", table)
	}
	writeItemLines(&b, items)
	fmt.Fprintf(&b, "\nTotal: %s", formatAmount(subtotal))
	if reason != "" {
		fmt.Fprintf(&b, "\nReason: %s", reason)
	}
	return b.String()
}

func writeItemLines(b *strings.Builder, items []model.OrderItem) {
	b.WriteString("\n")
	for _, item := range items {
		lineTotal := item.Price.Mul(decimal.NewFromInt(item.Qty))
		fmt.Fprintf(b, "%s (x%d) - %s\n", item.Name, item.Qty, formatAmount(lineTotal))
	}
}
