// Copyright (C) 2025 ringmesh-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package handler

import "errors"

// ErrNotFound is returned when a REPORT envelope references a pending
// transport UUID, subring, or other lookup key this process no longer (or
// never did) have state for. Per the error design, this is returned to the
// caller with no side effect rather than retried internally.
var ErrNotFound = errors.New("handler: not found")
