package rediskey

import "fmt"

const (
	TargetSummaryPrefix = "target:summary"
	LeadSequencePrefix  = "seq:lead"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildTargetSummaryKey returns "target:summary:{scope}", scope is "all" for
// the unfiltered summary.
func BuildTargetSummaryKey(scope string) string {
	if scope == "" {
		scope = "all"
	}
	return NamespaceKey(TargetSummaryPrefix, scope)
}

// BuildLeadSequenceKey returns "seq:lead:{yymmdd}"
func BuildLeadSequenceKey(day string) string {
	return NamespaceKey(LeadSequencePrefix, day)
}
