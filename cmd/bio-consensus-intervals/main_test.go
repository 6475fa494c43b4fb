// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"testing"

	"github.com/grailbio/base/file"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestRegisterS3(t *testing.T) {
	registerS3()
	impl := file.FindImplementation("s3")
	assert.NotNil(t, impl)
	expect.EQ(t, impl.String(), "s3")

	scheme, suffix, err := file.ParsePath("s3://bucket/reads.bam")
	assert.NoError(t, err)
	expect.EQ(t, scheme, "s3")
	expect.EQ(t, suffix, "bucket/reads.bam")
}
