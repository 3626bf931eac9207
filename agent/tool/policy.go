package tool

import (
	"context"
	"fmt"
	"strings"
)

const ToolGetReturnPolicy = "get_return_policy"

type returnPolicy struct {
	window     string
	condition  string
	process    string
	refundTime string
	shipping   string
	warranty   string
}

var returnPolicies = map[string]returnPolicy{
	"smartphones": {
		window:     "30 days",
		condition:  "Original packaging, no physical damage, factory reset required",
		process:    "Online RMA portal or technical support",
		refundTime: "5-7 business days after inspection",
		shipping:   "Free return shipping, prepaid label provided",
		warranty:   "1-year manufacturer warranty included",
	},
	"laptops": {
		window:     "30 days",
		condition:  "Original packaging, all accessories, no software modifications",
		process:    "Technical support verification required before return",
		refundTime: "7-10 business days after inspection",
		shipping:   "Free return shipping with original packaging",
		warranty:   "1-year manufacturer warranty, extended options available",
	},
	"accessories": {
		window:     "30 days",
		condition:  "Unopened packaging preferred, all components included",
		process:    "Online return portal",
		refundTime: "3-5 business days after receipt",
		shipping:   "Customer pays return shipping under $50",
		warranty:   "90-day manufacturer warranty",
	},
}

// Categories outside the table fall back to the store-wide policy.
var defaultReturnPolicy = returnPolicy{
	window:     "30 days",
	condition:  "Original condition with all included components",
	process:    "Contact technical support",
	refundTime: "5-7 business days after inspection",
	shipping:   "Return shipping policies vary",
	warranty:   "Standard manufacturer warranty applies",
}

func ReturnPolicyDescriptor() Descriptor {
	return Descriptor{
		Name: ToolGetReturnPolicy,
		Desc: "Get return policy information for a specific product category.",
		Schema: InputSchema{
			Properties: map[string]Property{
				"product_category": {
					Type: "string",
					Desc: "Electronics category (e.g., 'smartphones', 'laptops', 'accessories')",
				},
			},
			Required: []string{"product_category"},
		},
	}
}

func GetReturnPolicy(_ context.Context, args map[string]any) (string, error) {
	category, _ := args["product_category"].(string)

	policy, ok := returnPolicies[strings.ToLower(category)]
	if !ok {
		policy = defaultReturnPolicy
	}

	return fmt.Sprintf(
		"Return Policy - %s:\n\n"+
			"* Return window: %s from delivery\n"+
			"* Condition: %s\n"+
			"* Process: %s\n"+
			"* Refund timeline: %s\n"+
			"* Shipping: %s\n"+
			"* Warranty: %s",
		titleCase(category),
		policy.window, policy.condition, policy.process,
		policy.refundTime, policy.shipping, policy.warranty,
	), nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
