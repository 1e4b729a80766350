package store

// Output table names. These are the public contract with the Dashboard:
// downstream consumers address tables exclusively by these names, and
// the column layout behind each name must stay stable across pipeline
// versions.
const (
	TableUnifiedTrips      = "unified_trips"
	TableCleanTrips        = "clean_trips"
	TableAuditLog          = "audit_log"
	TableCongestionZone    = "congestion_zone"
	TableBorderZones       = "border_zones"
	TableComplianceStats   = "compliance_stats"
	TableLeakageTrips      = "leakage_trips"
	TableTopLeakagePickups = "top_leakage_pickups"
	TableMonthlyKPIs       = "monthly_kpis"
	TableZoneTripCounts    = "zone_trip_counts"
	TableMonthlyLeakage    = "monthly_leakage"
	TableQ1FleetComparison = "q1_fleet_comparison"
	TableBorderEffect      = "border_effect"
	TableVelocityHeatmap   = "velocity_heatmap"
	TableCrowdingOut       = "crowding_out"
	TableRainSummary       = "rain_summary"
	TableImputedDecember   = "imputed_december_2025"
)

// Contract lists every table name the pipeline may publish, in the
// order the stages produce them.
var Contract = []string{
	TableUnifiedTrips,
	TableCleanTrips,
	TableAuditLog,
	TableCongestionZone,
	TableBorderZones,
	TableComplianceStats,
	TableLeakageTrips,
	TableTopLeakagePickups,
	TableMonthlyKPIs,
	TableZoneTripCounts,
	TableMonthlyLeakage,
	TableQ1FleetComparison,
	TableBorderEffect,
	TableVelocityHeatmap,
	TableCrowdingOut,
	TableRainSummary,
	TableImputedDecember,
}

// InContract reports whether name is a published table name.
func InContract(name string) bool {
	for _, t := range Contract {
		if t == name {
			return true
		}
	}
	return false
}
