package domain

import "strings"

// labelSignalPrefix and labelSignalSuffix frame the data-entry key template
// reserved for the label signal (spec §4.5, §6.5): "status_<{asset_id}>".
const (
	labelSignalPrefix = "status_<"
	labelSignalSuffix = ">"
)

// knownAssetAttributeTemplates is the small closed set of well-known key
// prefixes that tie an oracle data entry to an asset id (spec §6.5).
// Unrecognised keys are stored but produce no related_asset_id.
var knownAssetAttributeTemplates = []string{
	labelSignalPrefix, // status_<assetId> - label signal, spec §4.5
	"ticker_<",        // ticker_<assetId>
	"description_<",   // description_<assetId>
	"logo_<",          // logo_<assetId>
}

// ParseRelatedAssetID extracts the asset id a data entry key refers to, if
// the key matches one of the known templates (spec §6.5). Returns ok=false
// for unrecognised keys.
func ParseRelatedAssetID(key string) (assetID string, ok bool) {
	for _, prefix := range knownAssetAttributeTemplates {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if !strings.HasSuffix(rest, ">") {
			continue
		}
		assetID = rest[:len(rest)-1]
		if assetID == "" {
			continue
		}
		return assetID, true
	}
	return "", false
}

// IsLabelSignalKey reports whether key is the "status_<asset_id>" template
// for the given asset id (spec §4.5).
func IsLabelSignalKey(key, assetID string) bool {
	return key == labelSignalPrefix+assetID+labelSignalSuffix
}
