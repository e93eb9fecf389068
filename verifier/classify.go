package verifier

// classify implements spec §4.D step 6: perfect requires exact equality and
// no non-empty cborAuxdata transformation; partial requires equality only
// after normalization (i.e. the substituted comparison still matches once we
// know the only divergence was auxdata content); otherwise null.
func classify(transformedRecompiled, onchain []byte, hadAuxdataTransform bool) Verdict {
	if !bytesEqual(transformedRecompiled, onchain) {
		return VerdictNull
	}
	if hadAuxdataTransform {
		return VerdictPartial
	}
	return VerdictPerfect
}
