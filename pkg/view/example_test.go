package view_test

import (
	"fmt"
	"time"

	"github.com/matzehuels/vizframe/pkg/plugin"
	"github.com/matzehuels/vizframe/pkg/pose"
	"github.com/matzehuels/vizframe/pkg/view"
)

func ExampleView() {
	v := view.New()
	laser := plugin.NewBase("laser")

	_ = v.Attach(laser, nil)
	_ = v.SetReferenceFrame("world")
	_ = v.SetPluginDataFrame(laser, "laser")

	_ = v.PushStatic("laser", "body", pose.FromTranslation(0.5, 0, 0))
	_ = v.PushDynamic("body", "world", pose.FromTranslation(10, 0, 0), time.Unix(100, 0))
	_ = v.Process(time.Time{})

	fmt.Println(laser.Pose().Translation)
	fmt.Println(v.Frames())
	// Output:
	// [10.5 0 0]
	// [body laser world]
}
