package capture

import "time"

// EmissionInterval is the fixed recorder emission period.
const EmissionInterval = time.Second
