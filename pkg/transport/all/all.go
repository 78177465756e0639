// Package all registers every transport endpoint.
package all

import (
	// endpoints register themselves.
	_ "github.com/robotalks/mwboot/pkg/transport/mqtt"
	_ "github.com/robotalks/mwboot/pkg/transport/serial"
	_ "github.com/robotalks/mwboot/pkg/transport/stream"
	_ "github.com/robotalks/mwboot/pkg/transport/websocket"
)
