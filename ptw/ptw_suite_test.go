package ptw_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPTW(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PTW Suite")
}
