package redis

const (
	// KeyPrefix namespaces every key written by checkit.
	KeyPrefix = "checkit:"
	// KeySweepLock guards the sweep against concurrent runs.
	KeySweepLock = KeyPrefix + "lock:sweep"
	// KeyLastSweep holds the JSON summary of the latest sweep.
	KeyLastSweep = KeyPrefix + "sweep:last"
)
