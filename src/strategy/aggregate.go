package strategy

import "tradingbot/src/model"

// Aggregate reduces per-strategy signals for one symbol to a single decision
// by majority vote. Ties resolve to HOLD so a trade only happens on clear
// agreement. The aggregate confidence is the mean confidence of the winning
// side; the price is taken from the latest signal.
func Aggregate(signals []Signal) Signal {
	if len(signals) == 0 {
		return Signal{Action: model.ActionHold, Strategy: "aggregate"}
	}

	var buys, sells []Signal
	for _, s := range signals {
		switch s.Action {
		case model.ActionBuy:
			buys = append(buys, s)
		case model.ActionSell:
			sells = append(sells, s)
		}
	}

	out := Signal{
		Symbol:   signals[0].Symbol,
		Action:   model.ActionHold,
		Price:    signals[len(signals)-1].Price,
		Strategy: "aggregate",
	}

	switch {
	case len(buys) > len(sells):
		out.Action = model.ActionBuy
		out.Confidence = meanConfidence(buys)
	case len(sells) > len(buys):
		out.Action = model.ActionSell
		out.Confidence = meanConfidence(sells)
	}

	return out
}

func meanConfidence(signals []Signal) float64 {
	if len(signals) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range signals {
		sum += s.Confidence
	}
	return clamp01(sum / float64(len(signals)))
}
