/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package buddy

import "errors"

var (
	// ErrInvalidArgument is returned for a rank out of range, an address that is
	// out of the pool or not on a page boundary, a double free, or a query on an
	// interior page of a block.
	ErrInvalidArgument = errors.New("buddy: invalid argument")

	// ErrOutOfSpace is returned when no free block of the requested rank or larger exists.
	ErrOutOfSpace = errors.New("buddy: out of space")
)
