// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package output writes fetched pull request records. Two formats are
// supported: NDJSON, one record per line, and JSON, a single array. Both
// stream records as they arrive rather than holding them in memory.
//
//	w, err := output.Open("prs.ndjson", output.FormatNDJSON)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	for _, pr := range prs {
//	    if err := w.Write(pr); err != nil {
//	        return err
//	    }
//	}
package output
