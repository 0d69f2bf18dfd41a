package models

// QuotaState is the per-principal storage ledger. Used covers committed
// bytes of non-deleted files (trash included); Reserved covers in-flight
// uploads between reserve and commit.
type QuotaState struct {
	OwnerID  string
	Quota    int64
	Used     int64
	Reserved int64
}

// Available returns the bytes still open for new reservations.
func (q *QuotaState) Available() int64 {
	a := q.Quota - q.Used - q.Reserved
	if a < 0 {
		return 0
	}
	return a
}
