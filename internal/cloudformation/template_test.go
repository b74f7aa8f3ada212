package cloudformation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicalID(t *testing.T) {
	testCases := []struct {
		parts    []string
		expected string
	}{
		{[]string{"UserHandlers.GetUser", "Function"}, "UserHandlersGetUserFunction"},
		{[]string{"SQSQueue", "order-placed", "dev"}, "SQSQueueOrderPlacedDev"},
		{[]string{"{id}"}, "Id"},
		{[]string{"déjà vu"}, "DJVu"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, LogicalID(tc.parts...))
	}
}

func TestTemplate_AddResourceRejectsTakenID(t *testing.T) {
	template := NewTemplate("test")
	first := NewQueue("Ordersdev", 60)
	second := NewQueue("Ordersdev", 120)

	require.NoError(t, template.AddResource(first))
	err := template.AddResource(second)

	var dup *DuplicateResourceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.LogicalID(), dup.ID)
	assert.Same(t, first, dup.Existing)
	assert.Contains(t, err.Error(), "AWS::SQS::Queue")
	assert.Equal(t, 1, template.Len())

	assert.Same(t, first, template.Ensure(second))
	assert.Equal(t, 1, template.Len())

	got, ok := template.Get(first.LogicalID())
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestNewCronRule_IDDependsOnSchedule(t *testing.T) {
	fn := NewFunction("Jobs.Report", "shop-dev-jobs-report", "dev", 10, 1024, "${bootstrap.zip}", NewDeploymentBucket())

	hourly := NewCronRule("0 * * * ? *", fn)
	daily := NewCronRule("0 12 * * ? *", fn)

	assert.NotEqual(t, hourly.LogicalID(), daily.LogicalID())
	assert.Equal(t, hourly.LogicalID(), NewCronRule("0 * * * ? *", fn).LogicalID())
	assert.Regexp(t, `^JobsReportFunctionCronRule[0-9a-f]{8}$`, hourly.LogicalID())
}

func TestTemplate_MarshalJSON(t *testing.T) {
	template := NewTemplate("Nimbus update stack")
	bucket := NewDeploymentBucket()
	fn := NewFunction("Report", "shop-dev-report", "dev", 30, 512, "${bootstrap.zip}", bucket)
	logGroup := NewLogGroup(fn)
	role := NewIAMRole(fn)
	fn.SetRole(role, logGroup)
	fn.AddEnvVariable("NIMBUS_STAGE", "dev")

	for _, r := range []Resource{role, fn, logGroup, bucket} {
		require.NoError(t, template.AddResource(r))
	}
	template.AddOutput(bucket.NameOutput("shop", "dev"))

	data, err := json.Marshal(template)
	require.NoError(t, err)

	var doc struct {
		Version     string `json:"AWSTemplateFormatVersion"`
		Description string
		Resources   map[string]struct {
			Type       string
			Properties map[string]interface{}
			DependsOn  []string
		}
		Outputs map[string]struct {
			Value  interface{}
			Export struct{ Name string }
		}
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "2010-09-09", doc.Version)
	assert.Equal(t, "Nimbus update stack", doc.Description)
	require.Len(t, doc.Resources, 4)

	function := doc.Resources["ReportFunction"]
	assert.Equal(t, "AWS::Lambda::Function", function.Type)
	assert.Equal(t, []string{"ReportFunctionRole", "ReportFunctionLogGroup"}, function.DependsOn)
	assert.Equal(t, "provided.al2023", function.Properties["Runtime"])
	assert.Equal(t, float64(30), function.Properties["Timeout"])
	assert.Equal(t, float64(512), function.Properties["MemorySize"])
	assert.Equal(t, map[string]interface{}{
		"S3Bucket": map[string]interface{}{"Ref": "NimbusDeploymentBucket"},
		"S3Key":    "${bootstrap.zip}",
	}, function.Properties["Code"])
	assert.Equal(t, map[string]interface{}{"Fn::GetAtt": []interface{}{"ReportFunctionRole", "Arn"}}, function.Properties["Role"])

	assert.Equal(t, "shop-dev-NimbusDeploymentBucketName", doc.Outputs["NimbusDeploymentBucketName"].Export.Name)
}

func TestIAMRole_DeduplicatesStatements(t *testing.T) {
	fn := NewFunction("Report", "shop-dev-report", "dev", 10, 1024, "key", NewDeploymentBucket())
	role := NewIAMRole(fn)
	queue := NewQueue("Jobsdev", 60)

	role.AddAllowStatement("sqs:SendMessage", queue, "")
	role.AddAllowStatement("sqs:SendMessage", queue, "")
	role.AddAllowStatement("sqs:DeleteMessage", queue, "")

	require.Len(t, role.Statements(), 2)
	assert.Equal(t, []interface{}{GetAtt("SQSQueueJobsdev", "Arn")}, role.Statements()[0].Resource)
}

func TestIntrinsics(t *testing.T) {
	assert.Equal(t, "arn:x:*", withSuffix("arn:x", ":*"))
	assert.Equal(t, Ref("A"), withSuffix(Ref("A"), ""))
	assert.Equal(t, Join("", GetAtt("A", "Arn"), "/index/*"), withSuffix(GetAtt("A", "Arn"), "/index/*"))

	data, err := json.Marshal(Join("", Ref("A"), "/b"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Join":["",[{"Ref":"A"},"/b"]]}`, string(data))
}

func TestFiles_Write(t *testing.T) {
	dir := t.TempDir()
	files := NewFiles("shop", "dev")
	require.NoError(t, files.Create.AddResource(NewDeploymentBucket()))

	written, err := files.Write(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "cloudformation-stack-create-dev.json"),
		filepath.Join(dir, "cloudformation-stack-update-dev.json"),
	}, written)

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"AWS::S3::Bucket"`)

	data, err = os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Resources": {}`)
}
