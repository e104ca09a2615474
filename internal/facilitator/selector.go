package facilitator

// SelectUTXO picks the ledger entry to debit for a check-my-tab
// authorization: the oldest entry (by first-seen time) belonging to the
// payer that pays the expected receiver and still covers the required
// amount. Older tabs drain before newer ones.
func (l *Ledger) SelectUTXO(payer, receiver string, required Satoshis) *LedgerEntry {
	var best *LedgerEntry
	for _, entry := range l.addressEntries(payer) {
		if !addrEqual(entry.ReceiverAddress, receiver) {
			continue
		}
		if entry.RemainingBalanceSat < required {
			continue
		}
		if best == nil || entry.firstSeenTime().Before(best.firstSeenTime()) {
			best = entry
		}
	}
	return best
}
