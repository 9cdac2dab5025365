// README: Aggregates over a rider's or driver's ride history.
package analytics

import "londa/internal/types"

// historyCap bounds how many of the newest rides one aggregate reads.
const historyCap = 1000

type RiderStats struct {
	TotalRides     int         `json:"totalRides"`
	CompletedRides int         `json:"completedRides"`
	CancelledRides int         `json:"cancelledRides"`
	PendingRides   int         `json:"pendingRides"`
	TotalSpent     types.Money `json:"totalSpent"`
	AverageRating  float64     `json:"averageRating"`
}

type RiderPerformance struct {
	CompletionRate    float64 `json:"completionRate"`
	TotalRides        int     `json:"totalRides"`
	CompletedRides    int     `json:"completedRides"`
	RecentRides30Days int     `json:"recentRides30Days"`
}

type DayEarnings struct {
	Date     string      `json:"date"`
	Earnings types.Money `json:"earnings"`
	Rides    int         `json:"rides"`
}

type Window struct {
	Total     types.Money   `json:"total"`
	Rides     int           `json:"rides"`
	Breakdown []DayEarnings `json:"breakdown"`
}

type Earnings struct {
	TotalEarnings  types.Money `json:"totalEarnings"`
	TotalRides     int         `json:"totalRides"`
	AveragePerRide types.Money `json:"averageEarningPerRide"`
	Daily          Window      `json:"daily"`
	Weekly         Window      `json:"weekly"`
	Monthly        Window      `json:"monthly"`
}

type DriverStats struct {
	TotalRides     int     `json:"totalRides"`
	CompletedRides int     `json:"completedRides"`
	CancelledRides int     `json:"cancelledRides"`
	ActiveRides    int     `json:"activeRides"`
	AverageRating  float64 `json:"averageRating"`
	CompletionRate float64 `json:"completionRate"`
}

type DriverPerformance struct {
	CompletionRate             float64 `json:"completionRate"`
	TotalRides                 int     `json:"totalRides"`
	CompletedRides             int     `json:"completedRides"`
	RecentRides30Days          int     `json:"recentRides30Days"`
	AverageResponseTimeMinutes float64 `json:"averageResponseTimeMinutes"`
}

type MonthlyUsage struct {
	Month          int        `json:"month"`
	Year           int        `json:"year"`
	TotalRides     int        `json:"totalRides"`
	CompletedRides int        `json:"completedRides"`
	CancelledRides int        `json:"cancelledRides"`
	Rides          []types.ID `json:"rideIds"`
}
