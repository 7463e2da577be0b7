// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package models

import "errors"

var ErrComponentNotFound = errors.New("component not found")

// Component records an instantiated blueprint so it can be reloaded
type Component struct {
	ID         uint   `gorm:"primarykey"`
	Address    string `gorm:"size:128;uniqueIndex;not null"`
	Blueprint  string `gorm:"size:64;index;not null"`
	AddedEpoch uint64 `gorm:"not null"`
}

func (Component) TableName() string {
	return "component"
}
