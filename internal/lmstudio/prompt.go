package lmstudio

import (
	"fmt"
	"sort"
	"strings"
)

const promptTemplate = `Analyze this email and extract the following information in JSON format:

1. Prices in the format:
   casino
   price
   usd
   [number]
   OR
   price
   usd
   [number]

2. Important placement information for column Q:
   - Publication process
   - Link types (dofollow/nofollow)
   - Content requirements
   - Timeline
   - Traffic info
   - Domain metrics (DR, TF, etc.)

3. Additional details for column R:
   - Payment methods
   - Special terms
   - Discounts
   - Contact info
   - Response times
   - Extra requirements

Format the response as valid JSON:
{
    "price_usd": "number only, no symbols",
    "price_usd_casino": "number only if higher than standard",
    "important_info": "key requirements and metrics",
    "comments": "additional details"
}

Email to analyze:
%s

Return ONLY the JSON response.`

// buildPrompt renders the extraction prompt. Thread context, when
// present, is appended in sorted key order so follow-up messages can
// reference what earlier ones established.
func buildPrompt(body string, threadCtx map[string]string) string {
	prompt := fmt.Sprintf(promptTemplate, body)
	if len(threadCtx) == 0 {
		return prompt
	}

	keys := make([]string, 0, len(threadCtx))
	for k := range threadCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nThread context:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, threadCtx[k])
	}
	return b.String()
}
