/*
Copyright © 2025 the RDSim authors.
This file is part of RDSim.

RDSim is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RDSim is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RDSim.  If not, see <http://www.gnu.org/licenses/>.
*/

package rdsimutil

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rdsim"
)

// RetrySaver retries failed saves with exponential backoff.
type RetrySaver struct {
	rdsim.Saver

	// Retries is the number of times a failed save is retried.
	Retries int

	// InitialInterval is the wait before the first retry. Zero uses
	// the backoff package default.
	InitialInterval time.Duration

	Log logrus.FieldLogger
}

// Save saves s, retrying up to r.Retries times. It returns the last error
// if every attempt fails.
func (r *RetrySaver) Save(s *rdsim.Snapshot) error {
	b := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	return backoff.RetryNotify(
		func() error { return r.Saver.Save(s) },
		backoff.WithMaxRetries(b, uint64(r.Retries)),
		func(err error, d time.Duration) {
			if r.Log != nil {
				r.Log.WithFields(logrus.Fields{
					"dump":  s.Index,
					"retry": d,
				}).Warnf("%v: retrying", err)
			}
		},
	)
}
