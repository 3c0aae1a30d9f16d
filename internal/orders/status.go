package orders

import "sort"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// validNext is the order lifecycle. DELIVERED and CANCELLED are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusPaid: true, StatusProcessing: true, StatusCancelled: true},
	StatusPaid:       {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// NextStatuses lists the statuses reachable from s in one step, sorted.
func NextStatuses(s Status) []Status {
	out := make([]Status, 0, len(validNext[s]))
	for to := range validNext[s] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// PaymentStatus is the state of a single payment attempt.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
	PaymentPending PaymentStatus = "PENDING"
)
