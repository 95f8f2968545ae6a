// Package analytics holds the dashboard queries.
//
// Every query is a pure function of a *dataset.Tables handle and a Filters
// value. It drops rows missing the fields it needs, groups, reduces and sorts.
// Equal metrics are ordered by label so repeated calls return identical results.
//
// The CEO view uses RedemptionsBySegment, RedemptionsByWeekday,
// HourCategoryHeatmap, AgeBracketByCouponType, SegmentByCouponType,
// DevicesWithApp and ComputeCEOKPIs. The CFO view uses RevenueBySegment,
// CouponVsPurchase, AveragePurchaseByStore, CouponValueHistogram and
// ComputeCFOKPIs. HistoricalBaseline and Project drive the projections page.
package analytics
