package domain

import "sort"

// ExtractCommunityVerifiedLabel is the pure label-derivation rule of spec
// §4.5: examine the final oracles_data snapshot for the asset and, if the
// "status_<asset_id>" signal is present, decide the label op. Only the last
// label signal encountered is applied; oracle iteration order is made
// deterministic by sorting oracle addresses, per the determinism note in
// spec §9.
func ExtractCommunityVerifiedLabel(assetID string, oraclesData map[string][]OracleDataEntry) LabelDelta {
	oracles := make([]string, 0, len(oraclesData))
	for oracle := range oraclesData {
		oracles = append(oracles, oracle)
	}
	sort.Strings(oracles)

	delta := LabelDelta{Label: LabelCommunityVerified, Op: LabelOpNone}
	for _, oracle := range oracles {
		for _, entry := range oraclesData[oracle] {
			if entry.DataType != DataTypeInt || !IsLabelSignalKey(entry.Key, assetID) {
				continue
			}
			if entry.IntVal == 2 {
				delta = LabelDelta{Label: LabelCommunityVerified, Op: LabelOpSet}
			} else {
				delta = LabelDelta{Label: LabelCommunityVerified, Op: LabelOpDelete}
			}
		}
	}
	return delta
}
