package format

import (
	"fmt"
	"strings"
)

func successText(op string, d map[string]any) string {
	switch op {
	case "CREATE_MARKET":
		var b strings.Builder
		if addr := str(d["marketAddress"]); addr != "" {
			fmt.Fprintf(&b, "Created market %q at %s.", str(d["question"]), addr)
		} else {
			fmt.Fprintf(&b, "Created market %q. Its address is pending; look it up from transaction %s.",
				str(d["question"]), str(d["txHash"]))
		}
		if id := str(d["marketId"]); id != "" {
			fmt.Fprintf(&b, "\nMarket ID: %s", id)
		}
		fmt.Fprintf(&b, "\nEnds: %s", date(d["endTime"]))
		if outs := strList(d["outcomes"]); len(outs) > 0 {
			fmt.Fprintf(&b, "\nOutcomes: %s", strings.Join(outs, ", "))
		}
		fmt.Fprintf(&b, "\nInitial liquidity: %s", tokens(d["initialLiquidity"]))
		fmt.Fprintf(&b, "\nTransaction: %s", str(d["txHash"]))
		return b.String()

	case "BUY_POSITION":
		var b strings.Builder
		fmt.Fprintf(&b, "Bought %s for %s tokens in market %s.",
			str(d["outcome"]), tokens(d["amount"]), str(d["marketAddress"]))
		if _, ok := d["tokensReceived"]; ok {
			fmt.Fprintf(&b, "\nReceived: %s %s tokens", tokens(d["tokensReceived"]), str(d["outcome"]))
		}
		if _, ok := d["maxPriceImpactBps"]; ok {
			fmt.Fprintf(&b, "\nMax price impact: %s", percent(d["maxPriceImpactBps"]))
		}
		fmt.Fprintf(&b, "\nTransaction: %s", str(d["txHash"]))
		return b.String()

	case "SELL_POSITION":
		var b strings.Builder
		fmt.Fprintf(&b, "Sold %s %s tokens in market %s.",
			tokens(d["amount"]), str(d["outcome"]), str(d["marketAddress"]))
		if _, ok := d["collateralReturned"]; ok {
			fmt.Fprintf(&b, "\nReceived: %s collateral", tokens(d["collateralReturned"]))
		}
		fmt.Fprintf(&b, "\nTransaction: %s", str(d["txHash"]))
		return b.String()

	case "ADD_LIQUIDITY":
		var b strings.Builder
		fmt.Fprintf(&b, "Added %s liquidity to market %s.", tokens(d["amount"]), str(d["marketAddress"]))
		if _, ok := d["lpTokens"]; ok {
			fmt.Fprintf(&b, "\nLP tokens: %s", tokens(d["lpTokens"]))
		}
		fmt.Fprintf(&b, "\nTransaction: %s", str(d["txHash"]))
		return b.String()

	case "RESOLVE_MARKET":
		return fmt.Sprintf("Resolved market %s as %s.\nTransaction: %s",
			str(d["marketAddress"]), str(d["outcome"]), str(d["txHash"]))

	case "CLAIM_WINNINGS":
		if _, ok := d["amount"]; ok {
			return fmt.Sprintf("Claimed %s in winnings from market %s.\nTransaction: %s",
				tokens(d["amount"]), str(d["marketAddress"]), str(d["txHash"]))
		}
		return fmt.Sprintf("Claimed winnings from market %s.\nTransaction: %s",
			str(d["marketAddress"]), str(d["txHash"]))

	case "GET_MARKET_INFO", "GET_MARKET_BY_ID":
		var b strings.Builder
		fmt.Fprintf(&b, "Market %s", str(d["marketAddress"]))
		if id := str(d["marketId"]); id != "" {
			fmt.Fprintf(&b, " (ID %s)", id)
		}
		fmt.Fprintf(&b, "\nQuestion: %s", str(d["question"]))
		fmt.Fprintf(&b, "\nStatus: %s", str(d["status"]))
		fmt.Fprintf(&b, "\nEnds: %s", date(d["endTime"]))
		fmt.Fprintf(&b, "\nYES price: %s", price(d["yesPrice"]))
		fmt.Fprintf(&b, "\nNO price: %s", price(d["noPrice"]))
		fmt.Fprintf(&b, "\nTotal liquidity: %s", tokens(d["totalLiquidity"]))
		return b.String()

	case "GET_PRICE":
		return fmt.Sprintf("Prices for market %s:\nYES: %s\nNO: %s",
			str(d["marketAddress"]), price(d["yesPrice"]), price(d["noPrice"]))

	case "LIST_MARKETS":
		return listText(d)

	case "GET_MARKET_COUNT":
		n, _ := integer(d["count"])
		if n == 1 {
			return "There is 1 market."
		}
		return fmt.Sprintf("There are %d markets.", n)

	case "GET_OWNER":
		return fmt.Sprintf("The factory owner is %s.", str(d["owner"]))

	case "IS_PAUSED":
		if paused, _ := d["paused"].(bool); paused {
			return "Market creation is currently paused."
		}
		return "Market creation is currently active."

	case "GET_MIN_MARKET_DURATION":
		return fmt.Sprintf("Markets must stay open for at least %s (%s seconds).",
			str(d["duration"]), str(d["seconds"]))

	case "CHECK_MARKET_CREATOR":
		if ok, _ := d["isCreator"].(bool); ok {
			return fmt.Sprintf("%s is an authorized market creator.", str(d["account"]))
		}
		return fmt.Sprintf("%s is not an authorized market creator.", str(d["account"]))
	}
	return "Done."
}

func listText(d map[string]any) string {
	rows := listRows(d["markets"])
	if len(rows) == 0 {
		return "No markets have been created yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %s markets:", len(rows), str(d["total"]))
	for i, m := range rows {
		fmt.Fprintf(&b, "\n%d. %s\n   %s | %s | ends %s",
			i+1, str(m["question"]), str(m["marketAddress"]), str(m["status"]), date(m["endTime"]))
	}
	return b.String()
}

// listRows accepts rows straight from an executor or decoded from JSON.
func listRows(v any) []map[string]any {
	switch rows := v.(type) {
	case []map[string]any:
		return rows
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			if m, ok := r.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func strList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			out = append(out, str(e))
		}
		return out
	}
	return nil
}
