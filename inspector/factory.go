// Copyright 2024 The tlscan Authors
// This file is part of the tlscan library.
//
// The tlscan library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tlscan library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tlscan library. If not, see <http://www.gnu.org/licenses/>.

package inspector

import (
	"fmt"

	"github.com/tlscan/tlscan/log"
	"github.com/tlscan/tlscan/rpcclient"
	"github.com/tlscan/tlscan/storage"
)

// New builds the Inspector for kind. It is the one place a worker
// process needs to know about all four variants; everything else
// (RunMany, the CLI) only ever sees the Inspector interface. The kind
// set is closed (spec.md §9's "tagged variant over a deep class
// hierarchy" guidance), so a plain switch is preferable to a registry.
func New(kind Kind, gateway *storage.Gateway, client *rpcclient.Client, logger *log.Logger, maxConcurrency int) (Inspector, error) {
	switch kind {
	case KindTLSC:
		return NewTLSCInspector(gateway, client, logger, maxConcurrency), nil
	case KindBlock:
		return NewBlockInspector(gateway, client, logger, maxConcurrency), nil
	case KindContract:
		return NewContractInspector(gateway, client, logger, maxConcurrency), nil
	case KindBlockAttributes:
		return NewBlockAttributesInspector(gateway, client, logger), nil
	default:
		return nil, fmt.Errorf("inspector: unknown kind %d", kind)
	}
}
