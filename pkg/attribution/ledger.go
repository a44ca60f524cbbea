package attribution

// Reconcile returns the incremental amount still owed after prior payments.
// Clamped at zero: amounts already disbursed beyond the allocation wait for
// future rewards, they are never clawed back. This is the only state carried
// across runs, which is what makes a full recompute idempotent with respect
// to external disbursements.
func Reconcile(owedToDate, alreadyPaid float64) float64 {
	if owedToDate <= alreadyPaid {
		return 0
	}
	return owedToDate - alreadyPaid
}
