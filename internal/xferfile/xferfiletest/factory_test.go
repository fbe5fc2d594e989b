package xferfiletest_test

import (
	"github.com/derektruong/upxfer/internal/xferfile"
	"github.com/derektruong/upxfer/internal/xferfile/xferfiletest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gstruct"
	"github.com/onsi/gomega/types"
)

var _ = Describe("InfoFactory", func() {
	DescribeTable("should create a new Info correctly",
		func(editFn func(info *xferfile.Info), matcher types.GomegaMatcher) {
			info := xferfiletest.InfoFactory(editFn)
			Expect(info).To(matcher)
		},
		Entry("should create a new Info correctly", nil, gstruct.MatchFields(gstruct.IgnoreExtras, gstruct.Fields{
			"Path":        Not(BeEmpty()),
			"Name":        Not(BeEmpty()),
			"Extension":   Not(BeEmpty()),
			"Size":        BeNumerically("~", 0, 1000000),
			"ModTime":     Not(BeZero()),
			"ContentType": Not(BeEmpty()),
		})),
		Entry("should create a new Info correctly with editFn", func(info *xferfile.Info) {
			info.Path = "test"
		}, gstruct.MatchFields(gstruct.IgnoreExtras, gstruct.Fields{
			"Path": Equal("test"),
		})),
		Entry("should create a new Info correctly with editFn", func(info *xferfile.Info) {
			info.Size = 100
		}, gstruct.MatchFields(gstruct.IgnoreExtras, gstruct.Fields{
			"Size": Equal(int64(100)),
		})),
	)
})
